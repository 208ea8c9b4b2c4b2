package main

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/aninfo/internal/platform/analytics"
	"github.com/example/aninfo/internal/platform/config"
	"github.com/example/aninfo/internal/platform/db"
	"github.com/example/aninfo/internal/platform/httpserver"
	"github.com/example/aninfo/internal/platform/logging"
	"github.com/example/aninfo/internal/platform/natsconn"
	"github.com/example/aninfo/internal/platform/run"
	srvconfig "github.com/example/aninfo/services/aninfo-server/internal/config"
	"github.com/example/aninfo/services/aninfo-server/internal/handlers"
	"github.com/example/aninfo/services/aninfo-server/internal/nyaa"
	"github.com/example/aninfo/services/aninfo-server/internal/ratelimit"
	"github.com/example/aninfo/services/aninfo-server/internal/store"
	"github.com/example/aninfo/services/aninfo-server/internal/tokens"
	"github.com/example/aninfo/services/aninfo-server/internal/torrents"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	scfg, err := srvconfig.LoadServer()
	if err != nil {
		log.Error("config", zap.Error(err))
		run.Exit(1)
	}

	st, pool := initStore(log, scfg.Store)
	if pool != nil {
		defer pool.Close()
	}

	cache := initCache(log, scfg.Torrents)
	breaker := nyaa.NewBreaker("nyaa", scfg.Torrents.BreakerMaxRequests, scfg.Torrents.BreakerInterval,
		scfg.Torrents.BreakerTimeout, scfg.Torrents.BreakerFailures, log)
	index := nyaa.New(scfg.Torrents.NyaaBaseURL, nyaa.ClientConfig{MaxRetries: 2},
		nyaa.WithCircuitBreaker(breaker), nyaa.WithLogger(log.Named("nyaa")))
	finder := torrents.NewService(index, cache, log.Named("torrents"))

	// NATS is optional: without it analytics are dropped and the torrent
	// cache only expires by TTL.
	var pub *analytics.Publisher
	if nc := initNATS(log, scfg.NATSURL, cfg.ServiceName); nc != nil {
		defer nc.Close()
		pub = initAnalytics(log, nc)
		if _, err := finder.SubscribeInvalidation(nc); err != nil {
			log.Warn("torrent cache invalidation subscribe", zap.Error(err))
		}
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      log.Named("http"),
		ReadyFunc: func() error {
			if pool == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
	})
	handlers.Mount(r, handlers.Deps{
		Store:     st,
		Tokens:    tokens.Service{Secret: scfg.Auth.JWTSecret, TokenTTL: scfg.Auth.TokenTTL},
		Torrents:  finder,
		Publisher: pub,
		Log:       log,
		RateLimit: ratelimit.New(scfg.Limit.RPS, scfg.Limit.Burst).TrustProxies(scfg.Limit.TrustedProxies...).Middleware,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	grpcStart, err := grpcStarter(log, cfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}

	runner := run.New(log)
	starts := []func(ctx context.Context) error{
		func(ctx context.Context) error {
			go func() {
				_ = runner.Graceful(ctx, srv.Shutdown)
			}()
			return srv.Start(log)
		},
	}
	if grpcStart != nil {
		starts = append(starts, grpcStart)
	}
	code := runner.WithSignals(starts...)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects Postgres when DATABASE_URL is set, else in-memory stores.
// In production a working database is mandatory.
func initStore(log *zap.Logger, cfg srvconfig.StoreConfig) (store.Store, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store (development only)")
		return store.NewMemory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
	if err != nil {
		if cfg.Production {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory store", zap.Error(err))
		return store.NewMemory(), nil
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, store.Schema); err != nil {
			log.Error("migrate", zap.Error(err))
			pool.Close()
			run.Exit(1)
		}
	}
	log.Info("using postgres store")
	return store.Postgres{DB: pool}, pool
}

func initCache(log *zap.Logger, cfg srvconfig.TorrentConfig) torrents.Cache {
	if cfg.RedisURL == "" {
		return torrents.NewMemoryCache(cfg.CacheTTL)
	}
	rc, err := torrents.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-process torrent cache", zap.Error(err))
		return torrents.NewMemoryCache(cfg.CacheTTL)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unavailable, using in-process torrent cache", zap.Error(err))
		_ = rc.Close()
		return torrents.NewMemoryCache(cfg.CacheTTL)
	}
	log.Info("using redis torrent cache")
	return rc
}

// initNATS returns nil when url is empty or the server cannot be reached.
func initNATS(log *zap.Logger, url, name string) *nats.Conn {
	if url == "" {
		log.Info("NATS_URL not set, analytics and cache invalidation disabled")
		return nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: url, Name: name})
	if err != nil {
		log.Warn("nats unavailable, analytics and cache invalidation disabled", zap.Error(err))
		return nil
	}
	return nc
}

// grpcStarter listens on addr and returns a start func serving gRPC health
// and reflection. An empty addr disables the listener and returns nil.
func grpcStarter(log *zap.Logger, addr string) (func(ctx context.Context) error, error) {
	if addr == "" {
		log.Info("GRPC_ADDR not set, grpc health disabled")
		return nil, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, hs)
	reflection.Register(grpcSrv)

	return func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			hs.Shutdown()
			stopped := make(chan struct{})
			go func() {
				grpcSrv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(10 * time.Second):
				grpcSrv.Stop()
			}
		}()
		log.Info("grpc server starting", zap.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}, nil
}

func initAnalytics(log *zap.Logger, nc *nats.Conn) *analytics.Publisher {
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("jetstream unavailable, analytics disabled", zap.Error(err))
		return nil
	}
	if err := natsconn.EnsureStream(js, analytics.StreamName, analytics.StreamSubject); err != nil {
		log.Warn("analytics stream", zap.Error(err))
		return nil
	}
	return analytics.New(js, log.Named("analytics"))
}
