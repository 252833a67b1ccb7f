package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/habitloop/habitloop/internal/api"
	"github.com/habitloop/habitloop/internal/app/engagement"
	"github.com/habitloop/habitloop/internal/app/habit"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/health"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Daemon is the habitloop runtime. It wires together all services.
type Daemon struct {
	Config   Config
	Home     string
	DB       *sqlite.DB
	Log      *slog.Logger
	Habits   *habit.Service
	Tracker  *engagement.Tracker
	Notifier *engagement.NotificationService
	Health   *health.Checker
	Server   *api.Server
	cancel   context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, habitloopHome())
}

// NewWithConfig creates a Daemon with the given configuration and data directory.
func NewWithConfig(cfg Config, home string) (*Daemon, error) {
	logger := NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	catalog := engagement.DefaultCatalog()
	if cfg.Engagement.CatalogFile != "" {
		loaded, err := engagement.LoadCatalog(cfg.Engagement.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		catalog = loaded
	}

	db, err := sqlite.Open(home)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	notifier := engagement.NewNotificationServiceWithPolicy(db, domain.NotificationPolicy{
		MaxPerDay:  cfg.Notifications.MaxPerDay,
		QuietStart: cfg.Notifications.QuietStart,
		QuietEnd:   cfg.Notifications.QuietEnd,
	})
	tracker := engagement.NewTracker(db, catalog, notifier, engagement.TrackerConfig{
		XPPerCompletion: cfg.Engagement.XPPerCompletion,
		LookbackDays:    cfg.Engagement.LookbackDays,
		StatsWindowDays: cfg.Engagement.StatsWindowDays,
	}, logger)
	habits := habit.NewService(db, logger)
	checker := health.NewChecker(db, home, logger)

	srv := api.NewServer(habits, tracker, notifier, logger)
	srv.SetHealth(checker)
	if len(cfg.API.CORSOrigins) > 0 {
		srv.SetCORSOrigin(strings.Join(cfg.API.CORSOrigins, ", "))
	}
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:   cfg,
		Home:     home,
		DB:       db,
		Log:      logger.With("component", "daemon"),
		Habits:   habits,
		Tracker:  tracker,
		Notifier: notifier,
		Health:   checker,
		Server:   srv,
	}, nil
}

// Serve starts the HTTP server and health loop, and blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.Health.Run(ctx)
	})

	g.Go(func() error {
		d.Log.Info("serving", slog.String("addr", "http://"+addr), slog.Bool("metrics", d.Config.API.Metrics))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		d.Log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// NewLogger builds the process logger from config.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
