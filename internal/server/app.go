// Package server wires configuration, storage, the breach checker and the
// TCP front end into a runnable passvault server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/filex"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/breach"
	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/dmitrijs2005/passvault/internal/server/dispatch"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/dmitrijs2005/passvault/internal/server/tcp"
	"github.com/dmitrijs2005/passvault/internal/server/vault"
	"golang.org/x/time/rate"
)

var logOutput io.Writer = os.Stdout

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *tcp.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(logOutput, c.LogLevel)

	dsn, err := databaseDSN(c)
	if err != nil {
		return nil, fmt.Errorf("data dir init error: %w", err)
	}

	db, m, err := repomanager.Open(ctx, c.StorageDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, db, m)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager) (*App, error) {
	deriver, err := cryptox.NewDeriver(c.KDFParams())
	if err != nil {
		return nil, fmt.Errorf("kdf init error: %w", err)
	}

	backend, err := newVaultBackend(ctx, c, db, m, logger)
	if err != nil {
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	checker, err := newChecker(c, logger)
	if err != nil {
		return nil, fmt.Errorf("breach checker init error: %w", err)
	}

	policy, err := dispatch.ParsePolicy(c.CheckFailedPolicy)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(
		services.NewUserService(db, m, deriver),
		vault.NewStore(backend),
		checker,
		dispatch.Options{
			CheckFailedPolicy: policy,
			LoginRate:         rate.Limit(c.LoginRate),
			LoginBurst:        c.LoginBurst,
		},
		logger,
		logging.NewLoggerAuditor(logger),
	)

	srv := tcp.NewServer(c.ListenAddr, tcp.Options{
		Workers:        c.Workers,
		InboxLines:     c.InboxLines,
		MaxLineBytes:   c.MaxLineBytes,
		MaxConnections: c.MaxConnections,
		WriteTimeout:   c.WriteTimeout,
		IdleTimeout:    c.IdleTimeout,
		Greeting:       common.ProtocolVersion + " ready",
	}, func(connID string) tcp.ConnHandler {
		return d.NewHandler(connID)
	}, logger)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

// databaseDSN fills in the embedded database file when no DSN is given.
func databaseDSN(c *config.Config) (string, error) {
	if c.DatabaseDSN != "" || c.StorageDriver != "sqlite" {
		return c.DatabaseDSN, nil
	}
	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "passvault.db"), nil
}

func newVaultBackend(ctx context.Context, c *config.Config, db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) (vault.Backend, error) {
	if c.VaultBackend != "s3" {
		return vault.NewSQLBackend(db, m), nil
	}
	return vault.NewS3Backend(ctx, vault.S3Config{
		Bucket:    c.S3Bucket,
		Prefix:    c.S3Prefix,
		Region:    c.S3Region,
		Endpoint:  c.S3BaseEndpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	}, logger)
}

func newChecker(c *config.Config, logger logging.Logger) (breach.Checker, error) {
	if c.BreachURL == "" {
		logger.Warn(context.Background(), "breach checks disabled, writes follow the check-failed policy",
			"policy", c.CheckFailedPolicy)
		return breach.Disabled{}, nil
	}

	key := c.BreachAPIKey
	if c.BreachAPIKeyFile != "" {
		k, err := filex.ReadSecretFile(c.BreachAPIKeyFile)
		if err != nil {
			return nil, err
		}
		key = k
	}

	return breach.NewRangeChecker(breach.RangeConfig{
		BaseURL:   c.BreachURL,
		APIKey:    key,
		Timeout:   c.BreachTimeout,
		RateLimit: c.BreachRate,
		Burst:     c.BreachBurst,
		CacheSize: c.BreachCacheSize,
		CacheTTL:  c.BreachCacheTTL,
	}, logger)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received, shutting down", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.StorageDriver, "vault", app.config.VaultBackend)

	app.initSignalHandler(ctx, cancelFunc)

	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "server error", "error", err)
	}

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	return err
}
