package db

import (
	"context"
	"testing"
)

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "  ", Options{})
	if err == nil || err.Error() != "DATABASE_URL is required" {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestOpen_RejectsMalformedDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", Options{})
	if err == nil {
		t.Fatal("expected parse error for malformed dsn")
	}
}

func TestMigrate_EmptySchemaIsNoop(t *testing.T) {
	if err := Migrate(context.Background(), nil, "\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
