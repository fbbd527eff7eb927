// Package server wires configuration, storage, the access service and the
// gRPC transport into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/dmitrijs2005/adminaccess/internal/server/auth"
	"github.com/dmitrijs2005/adminaccess/internal/server/config"
	"github.com/dmitrijs2005/adminaccess/internal/server/notify"
	"github.com/dmitrijs2005/adminaccess/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/adminaccess/internal/server/services"
	"github.com/thejerf/abtime"

	gs "github.com/dmitrijs2005/adminaccess/internal/server/grpc"
)

// openDB is a seam for tests.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	access *services.AccessService
}

// NewApp connects storage, applies migrations and builds the access
// service. outbox receives recovery messages when the log notifier is
// selected.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, outbox io.Writer) (*App, error) {
	if logger == nil {
		logger = logging.New(c.LogLevel, c.LogFormat, os.Stdout)
	}
	if outbox == nil {
		outbox = os.Stdout
	}

	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "insecure default secret key", "hint", "set ADMINACCESS_SECRET_KEY or -s")
	}

	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)
	switch c.Storage {
	case config.StorageMemory:
		rm = repomanager.NewMemoryRepositoryManager()
	default:
		var err error
		db, err = openDB(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrations: %w", err)
	}

	clock := abtime.NewRealTime()

	notifier, err := newNotifier(ctx, c, logger, outbox, clock)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	hasher := auth.NewPasswordHasher(auth.HashParams{
		Time:      c.HashTime,
		MemoryKiB: c.HashMemoryKiB,
		Threads:   c.HashThreads,
	})
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(c.SecretKey),
		SessionTTL: c.SessionTokenTTL,
		Issuer:     c.TokenIssuer,
	}, clock)

	access := services.NewAccessService(db, rm, hasher, tokens, auth.NewRoleEvaluator(), notifier, logger,
		services.AccessOptions{
			DefaultRoleID: c.DefaultRoleID,
			RecoveryTTL:   c.RecoveryTokenTTL,
			Clock:         clock,
		})

	return &App{config: c, logger: logger, db: db, access: access}, nil
}

func newNotifier(ctx context.Context, c *config.Config, logger logging.Logger, outbox io.Writer, clock abtime.AbstractTime) (notify.Notifier, error) {
	if c.Notifier == config.NotifierS3 {
		n, err := notify.NewS3OutboxNotifier(ctx, notify.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			LinkBase:     c.RecoveryLinkBase,
		}, logger, clock)
		if err != nil {
			return nil, fmt.Errorf("notifier init error: %w", err)
		}
		return n, nil
	}
	return notify.NewLogNotifier(outbox, c.RecoveryLinkBase, logger, clock), nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

// Access exposes the wired access service, e.g. to the admin CLI.
func (app *App) Access() *services.AccessService {
	return app.access
}

// Close releases the database connection, if any.
func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// grpcOptions turns the configured method table into transport options.
func grpcOptions(c *config.Config) []gs.Option {
	opts := make([]gs.Option, 0, len(c.PublicMethodPrefixes)+len(c.MethodPermissions))
	for _, prefix := range c.PublicMethodPrefixes {
		opts = append(opts, gs.WithPublicPrefix(prefix))
	}
	for method, perm := range c.MethodPermissions {
		opts = append(opts, gs.WithMethodPermission(method, perm))
	}
	return opts
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.access, grpcOptions(app.config)...)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage, "notifier", app.config.Notifier)

	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	return errors.Join(runErr, app.Close())
}
