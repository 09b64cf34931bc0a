// Package server initializes and runs the vault server: it opens the
// database, builds the services, and runs the HTTP and gRPC transports plus
// the session pruner until the process is signalled.
package server

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/config"
	"github.com/dmitrijs2005/gophvault/internal/server/httpapi"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/dmitrijs2005/gophvault/internal/server/sessions"
	"github.com/dmitrijs2005/gophvault/internal/telemetry"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophvault/internal/server/grpc"
)

const (
	shutdownTimeout   = 10 * time.Second
	dbStatsInterval   = 15 * time.Second
	ephemeralKeyBits  = 2048
	readHeaderTimeout = 5 * time.Second
)

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	newRedisClient = func(addr string) redis.UniversalClient {
		return redis.NewClient(&redis.Options{Addr: addr})
	}
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    redis.UniversalClient
	registry *sessions.Registry

	authService       *services.AuthService
	pinService        *services.PinService
	credentialService *services.CredentialService
	exportService     *services.ExportService
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(logging.New(os.Stdout, c.LogFormat, c.LogLevel))
	ctx := context.Background()

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}
	if err := app.init(ctx, rm); err != nil {
		_ = app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context, rm repomanager.RepositoryManager) error {
	c := app.config

	if c.CipherKey == config.DefaultCipherKey {
		app.logger.Warn(ctx, "cipher key is the built-in development default, set -x or cipher_key")
	}
	cipher, err := cryptox.New(c.CipherMode, []byte(c.CipherKey))
	if err != nil {
		return fmt.Errorf("cipher init error: %w", err)
	}

	priv, pub, err := loadKeys(ctx, c, app.logger)
	if err != nil {
		return fmt.Errorf("key load error: %w", err)
	}
	authority, err := auth.NewAuthority(c.Issuer, priv, pub)
	if err != nil {
		return fmt.Errorf("token authority init error: %w", err)
	}

	store, err := app.newSessionStore(rm)
	if err != nil {
		return err
	}
	app.registry = sessions.NewRegistry(store, c.RefreshTokenValidityDuration, app.logger)

	app.authService = services.NewAuthService(app.db, rm, authority, app.registry, c, app.logger)
	app.pinService = services.NewPinService(app.db, rm, cipher, app.logger)
	app.credentialService = services.NewCredentialService(app.db, rm, cipher, app.logger)
	app.exportService = services.NewExportService(app.db, rm, c, app.logger)
	return nil
}

// loadKeys reads the signing pair from disk, or generates an ephemeral one
// when no private key path is configured. Tokens signed with an ephemeral
// key do not survive a restart.
func loadKeys(ctx context.Context, c *config.Config, logger logging.Logger) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if c.PrivateKeyPath != "" {
		return auth.LoadKeyPairFiles(c.PrivateKeyPath, c.PublicKeyPath)
	}

	logger.Warn(ctx, "no private key configured, generating an ephemeral RSA key pair")
	priv, err := auth.GenerateKeyPair(ephemeralKeyBits)
	if err != nil {
		return nil, nil, err
	}
	return priv, &priv.PublicKey, nil
}

func (app *App) newSessionStore(rm repomanager.RepositoryManager) (sessions.Store, error) {
	switch app.config.SessionStore {
	case config.SessionStoreMemory:
		return sessions.NewMemoryStore(), nil
	case config.SessionStorePostgres:
		return sessions.NewPostgresStore(rm.RefreshTokens(app.db), rm.RevokedTokens(app.db)), nil
	case config.SessionStoreRedis:
		app.redis = newRedisClient(app.config.RedisAddr)
		return sessions.NewRedisStore(app.redis), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", app.config.SessionStore)
	}
}

func (app *App) close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) router() http.Handler {
	return httpapi.NewRouter(&httpapi.Deps{
		Auth:     app.authService,
		Pins:     app.pinService,
		Vault:    app.credentialService,
		Exporter: app.exportService,
		DB:       app.db,
		Logger:   app.logger,
	})
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.pinService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// waits for every component to stop and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	telemetry.StartDBStatsCollector(ctx, app.db, dbStatsInterval)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		sessions.NewPruner(app.registry, app.config.PruneInterval, app.logger).Run(ctx)
	}()

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(context.Background(), "close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
