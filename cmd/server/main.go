package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go-cvlibrary-scraper/internal/api"
	"go-cvlibrary-scraper/internal/app"
	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/database"
	"go-cvlibrary-scraper/internal/logging"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/runner"
	"go-cvlibrary-scraper/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// Finished scrape tasks stay queryable for this long.
const taskRetention = time.Hour

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		port       string
	)
	cmd := &cobra.Command{
		Use:           "cvscraper-server",
		Short:         "cvscraper-server exposes CV-Library scrape runs and saved sessions over HTTP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			if err := logging.Setup(cfg.LogLevel); err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.ServerPort = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "INFO", "DEBUG, INFO, WARNING or ERROR")
	cmd.Flags().StringVar(&port, "port", "8080", "HTTP listen port, overrides server_port and PORT")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, err := database.Open(ctx, cfg.Index)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if index != nil {
		defer index.Close()
	}

	run := func(ctx context.Context, criteria models.SearchCriteria) (*models.SessionRecord, error) {
		if limit := cfg.Download.MaxPerSession; limit > 0 && criteria.Quantity > limit {
			criteria.Quantity = limit
		}
		return app.Scrape(ctx, cfg, criteria, runner.OptionsFromConfig(cfg), index, app.Reporters(cfg, false))
	}
	tasks := api.NewTaskManager(ctx, run, taskRetention)

	srv := api.NewServer(api.Options{
		Tasks:    tasks,
		Sessions: session.NewStore(cfg.Session.Path),
		Index:    index,
		Ready: func(context.Context) error {
			if err := cfg.Validate(true).Err(); err != nil {
				return err
			}
			_, err := cfg.Credentials()
			return err
		},
		Version: version,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("🌐 server listening", "addr", httpSrv.Addr, "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("🛑 shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		// Running scrapes see the cancelled base context and finalise their sessions.
		tasks.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
