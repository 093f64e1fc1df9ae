// Package server wires configuration, storage and services into a running
// cliquefs process: the one-byte liveness listener and the gRPC health
// endpoint, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/liveness"
	"github.com/google/uuid"

	gs "github.com/dmitrijs2005/cliquefs/internal/server/grpc"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	runtime    *Runtime
	instanceID uuid.UUID
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	rt, err := NewRuntime(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	return &App{
		config:     c,
		logger:     logger.With("instance", id.String()),
		runtime:    rt,
		instanceID: id,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) runners() map[string]runner {
	return map[string]runner{
		"liveness": liveness.NewServer(app.config.LivenessAddr, app.instanceID, app.logger),
		"grpc":     gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.runtime.DB.PingContext),
	}
}

// Run blocks until a signal arrives, ctx is cancelled or a listener fails.
// A listener failure stops the others and is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	err := runAll(ctx, cancelFunc, app.logger, app.runners())

	if cerr := app.runtime.Close(); cerr != nil {
		app.logger.Error(ctx, "shutdown", "error", cerr)
		err = errors.Join(err, cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}

func runAll(ctx context.Context, cancelFunc context.CancelFunc, logger logging.Logger, rs map[string]runner) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for name, r := range rs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				logger.Error(ctx, "listener failed", "listener", name, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}
