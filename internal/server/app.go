// Package server wires the configured storage, locks, mirror and services
// together and serves them over gRPC until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/access"
	"github.com/dmitrijs2005/pagetree/internal/server/config"
	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/mirror"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagetree/internal/server/services"

	gs "github.com/dmitrijs2005/pagetree/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	services *services.Services
	closers  []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, m, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}
	app.closers = append(app.closers, db.Close)

	locker, err := app.newLocker(ctx)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("lock init error: %w", err)
	}

	mr, err := app.newMirror(ctx)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("mirror init error: %w", err)
	}

	app.services = services.New(db, m, services.Options{
		Access:         access.NewEvaluator(c.DevMode),
		Locker:         locker,
		Mirror:         mr,
		Logger:         logger.With("module", "services"),
		RewriteWorkers: c.RewriteWorkers,
	})

	return app, nil
}

// newLocker uses Redis when an address is configured and in-process
// locks otherwise.
func (app *App) newLocker(ctx context.Context) (locks.Locker, error) {
	if app.config.RedisAddr == "" {
		return locks.NewLocal(), nil
	}
	client, err := locks.NewRedisClient(ctx, app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, client.Close)
	app.logger.Info(ctx, "Using Redis locks", "address", app.config.RedisAddr)
	return locks.NewRedisLocker(client, app.config.LockTTL, app.logger), nil
}

// newMirror publishes Live pages to S3 when a bucket is configured.
func (app *App) newMirror(ctx context.Context) (mirror.Mirror, error) {
	if app.config.S3Bucket == "" {
		return mirror.Nop{}, nil
	}
	client, err := mirror.NewS3Client(ctx, mirror.Options{
		Region:       app.config.S3Region,
		BaseEndpoint: app.config.S3BaseEndpoint,
		AccessKey:    app.config.S3RootUser,
		SecretKey:    app.config.S3RootPassword,
	})
	if err != nil {
		return nil, err
	}
	app.logger.Info(ctx, "Mirroring live pages to S3", "bucket", app.config.S3Bucket)
	return mirror.NewS3Mirror(client, app.config.S3Bucket, app.config.S3Prefix), nil
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
}
