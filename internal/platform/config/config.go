package config

import (
	"errors"
	"os"
	"strings"
)

type HTTPConfig struct {
	Addr string
	// CORSOrigins is the raw comma-separated CORS_ALLOWED_ORIGINS value.
	CORSOrigins string
}

type GRPCConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	HTTP        HTTPConfig
	GRPC        GRPCConfig
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HTTP: HTTPConfig{
			Addr:        strings.TrimSpace(os.Getenv("HTTP_ADDR")),
			CORSOrigins: strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		GRPC: GRPCConfig{
			Addr: strings.TrimSpace(os.Getenv("GRPC_ADDR")),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	// GRPC.Addr stays empty when unset; the gRPC listener is optional.
	return cfg, nil
}
