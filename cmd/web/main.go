package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/manuscript/internal/auth"
	"github.com/myrjola/manuscript/internal/envstruct"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/logging"
	"github.com/myrjola/manuscript/internal/pprofserver"
	"github.com/myrjola/manuscript/internal/repositories"
	"github.com/myrjola/manuscript/internal/sqlite"
	"github.com/myrjola/manuscript/internal/validation"
	"golang.org/x/sync/errgroup"
)

const sessionCleanupInterval = 30 * time.Minute

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	auth           *auth.Service
	validator      *validation.Validator
	projects       *repositories.ProjectRepository
	episodes       *repositories.EpisodeRepository
	scenes         *repositories.SceneRepository
	secureCookies  bool
	requestTimeout time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"MANUSCRIPT_ADDR" envDefault:"localhost:4000"`
	// PprofAddr is the loopback address for pprof. Empty disables the pprof server.
	PprofAddr string `env:"MANUSCRIPT_PPROF_ADDR" envDefault:""`
	// SqliteURL is the path to the SQLite database or :memory: for an ephemeral one.
	SqliteURL       string        `env:"MANUSCRIPT_SQLITE_URL"       envDefault:"./manuscript.sqlite3"`
	SessionLifetime time.Duration `env:"MANUSCRIPT_SESSION_LIFETIME" envDefault:"12h"`
	// SecureCookies must only be disabled when serving plain HTTP in development.
	SecureCookies    bool          `env:"MANUSCRIPT_SECURE_COOKIES"    envDefault:"true"`
	BcryptCost       int           `env:"MANUSCRIPT_BCRYPT_COST"       envDefault:"10"`
	RequestTimeout   time.Duration `env:"MANUSCRIPT_REQUEST_TIMEOUT"   envDefault:"5s"`
	OptimizeInterval time.Duration `env:"MANUSCRIPT_OPTIMIZE_INTERVAL" envDefault:"1h"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, sessionCleanupInterval)
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Secure = cfg.SecureCookies
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	sessionManager.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.LogAttrs(r.Context(), slog.LevelError, "session error", errors.SlogError(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}

	users := repositories.NewUserRepository(db, logger)
	authService, err := auth.New(logger, sessionManager, users, cfg.BcryptCost)
	if err != nil {
		return errors.Wrap(err, "new auth service")
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		auth:           authService,
		validator:      validation.New(),
		projects:       repositories.NewProjectRepository(db, logger),
		episodes:       repositories.NewEpisodeRepository(db, logger),
		scenes:         repositories.NewSceneRepository(db, logger),
		secureCookies:  cfg.SecureCookies,
		requestTimeout: cfg.RequestTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db.RunOptimizer(ctx, cfg.OptimizeInterval)
		return nil
	})
	if cfg.PprofAddr != "" {
		g.Go(func() error {
			return pprofserver.Listen(ctx, cfg.PprofAddr, logger)
		})
	}
	g.Go(func() error {
		return app.configureAndStartServer(ctx, cfg.Addr)
	})
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// A missing .env is fine, the environment may be configured otherwise.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // stop is a no-op when exiting.
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
