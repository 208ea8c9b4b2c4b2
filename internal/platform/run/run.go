package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log, ShutdownTimeout: 10 * time.Second}
}

// WithSignals runs every start func until SIGINT/SIGTERM or the first error.
// Each start func must return once its ctx is cancelled.
func (r *Runner) WithSignals(starts ...func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx, starts...)
}

func (r *Runner) run(parent context.Context, starts ...func(ctx context.Context) error) int {
	g, ctx := errgroup.WithContext(parent)
	for _, start := range starts {
		start := start
		g.Go(func() error { return start(ctx) })
	}

	err := g.Wait()
	if parent.Err() != nil {
		r.Logger.Info("shutdown signal received")
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return 0
	}
	r.Logger.Error("service exited with error", zap.Error(err))
	return 1
}

// Graceful calls shutdown with a fresh timeout context once ctx is done.
func (r *Runner) Graceful(ctx context.Context, shutdown func(context.Context) error) error {
	<-ctx.Done()
	timeout := r.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return shutdown(c)
}

func Exit(code int) {
	os.Exit(code)
}
