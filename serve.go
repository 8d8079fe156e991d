package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/certificate"
	"github.com/bagumbayan/brgydocs/internal/config"
	"github.com/bagumbayan/brgydocs/internal/database"
	"github.com/bagumbayan/brgydocs/internal/db"
	"github.com/bagumbayan/brgydocs/internal/handler"
	"github.com/bagumbayan/brgydocs/internal/imaging"
	"github.com/bagumbayan/brgydocs/internal/repository"
	"github.com/bagumbayan/brgydocs/internal/router"
	"github.com/bagumbayan/brgydocs/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web portal",
	RunE:  runServe,
}

// stores is the backing storage selected by config.Store.
type stores struct {
	users    repository.UserRepository
	archive  repository.ArchiveRepository
	checkers []handler.ReadinessChecker
	// setup creates indexes and buckets; it may be slow on large stores.
	setup func(ctx context.Context) error
	close func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.Store {
	case config.StoreOxiDB:
		pool, err := db.NewPool(ctx, cfg.OxiDB.Host, cfg.OxiDB.Port, cfg.OxiDB.PoolSize, logger)
		if err != nil {
			return nil, fmt.Errorf("connect oxidb: %w", err)
		}
		logger.Info("connected to OxiDB",
			slog.String("host", cfg.OxiDB.Host),
			slog.Int("port", cfg.OxiDB.Port),
			slog.Int("pool_size", cfg.OxiDB.PoolSize),
		)
		users := repository.NewOxiUsers(pool)
		archive := repository.NewOxiArchive(pool)
		return &stores{
			users:    users,
			archive:  archive,
			checkers: []handler.ReadinessChecker{pool},
			setup: func(ctx context.Context) error {
				if err := users.EnsureIndexes(ctx); err != nil {
					return err
				}
				return archive.EnsureBucket(ctx)
			},
			close: pool.Close,
		}, nil

	case config.StorePostgres:
		if err := database.Migrate(cfg.Postgres, logger); err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    repository.NewPostgresUsers(pool),
			archive:  repository.NewPostgresArchive(pool),
			checkers: []handler.ReadinessChecker{database.NewReadinessChecker(pool)},
			setup:    func(context.Context) error { return nil },
			close:    pool.Close,
		}, nil
	}

	return &stores{
		users:   repository.NewMemoryUsers(),
		archive: repository.NopArchive{},
		setup:   func(context.Context) error { return nil },
		close:   func() {},
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Session.Secret == config.DefaultSessionSecret {
		logger.Warn("using the built-in session secret, set DOCS_SESSION_SECRET in production")
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	views, err := handler.NewRenderer(logger)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	sessions := auth.NewManager(
		repository.NewMemorySessions(cfg.Session.MaxEntries, cfg.Session.TTL),
		cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie,
	)

	authSvc := service.NewAuthService(st.users, logger)
	docSvc := service.NewDocumentService(
		service.DocumentConfig{
			OutputDir: cfg.Files.OutputDir,
			LogoLeft:  cfg.Files.LogoLeft,
			LogoRight: cfg.Files.LogoRight,
		},
		imaging.NewStore(cfg.Files.UploadDir, logger),
		certificate.NewComposer(cfg.Authority, logger),
		st.archive,
		logger,
	)
	sweeper := service.NewSweeper(cfg.Files.Retention, logger, cfg.Files.OutputDir, cfg.Files.UploadDir).
		PruneArchive(st.archive, cfg.Files.ArchiveRetention)

	r := router.New(logger, sessions, router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, sessions, views, logger),
		Pages:    handler.NewPageHandler(views),
		Forms:    handler.NewFormHandler(docSvc, sessions, views, logger, cfg.Files.MaxUpload),
		Document: handler.NewDocumentHandler(docSvc, sessions, views, logger),
		Admin:    handler.NewAdminHandler(st.archive, docSvc, views, logger),
		Health:   handler.NewHealthHandler(st.checkers...),
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Serve immediately; indexes and the admin account are set up in the
	// background so a slow index build does not delay the listener.
	g.Go(func() error {
		start := time.Now()
		logger.Info("background init: starting")
		if err := st.setup(gctx); err != nil {
			logger.Warn("background init: store setup failed", slog.String("error", err.Error()))
		}
		if err := authSvc.SeedAdmin(gctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			logger.Warn("background init: failed to seed admin", slog.String("error", err.Error()))
		}
		logger.Info("background init: done", slog.Duration("took", time.Since(start).Round(time.Millisecond)))
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx, cfg.Files.SweepInterval)
	})

	g.Go(func() error {
		logger.Info("brgydocs server starting",
			slog.String("addr", cfg.Addr),
			slog.String("store", cfg.Store),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
