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

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/db"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/config"
	"github.com/monocle-dev/taskboard/internal/handlers"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/router"
	"github.com/monocle-dev/taskboard/internal/storage"
	"github.com/monocle-dev/taskboard/internal/types"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("taskboard", pflag.ContinueOnError)
	configPath := flags.String("config", os.Getenv("TASKBOARD_CONFIG"), "path to a YAML config file")
	migrateOnly := flags.Bool("migrate-only", false, "run database migrations and exit")
	bootstrapAdmin := flags.String("bootstrap-admin", "", "promote the user with this email to global admin and exit")

	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.ConnectDatabase(cfg.Database)
	if err != nil {
		return err
	}

	if err := db.MigrateDatabase(gdb); err != nil {
		return err
	}
	logger.Info("database migrated", "driver", cfg.Database.Driver)

	if *migrateOnly {
		return nil
	}

	if *bootstrapAdmin != "" {
		return promoteAdmin(gdb, *bootstrapAdmin, logger)
	}

	tokens, err := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	blobs, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		return err
	}

	origins := types.AllowedOrigins(cfg.CORS.ClientURL, cfg.CORS.AllowedOrigins)

	h := handlers.New(handlers.Options{
		Config: cfg,
		DB:     gdb,
		Blobs:  blobs,
		Tokens: tokens,
		Hub:    handlers.NewHub(origins, logger.With("component", "websocket")),
		Logger: logger,
	})

	r := router.NewRouter(router.Dependencies{
		Config:  cfg,
		DB:      gdb,
		Tokens:  tokens,
		Handler: h,
		Logger:  logger,
	})

	return serve(r, cfg.Port, logger)
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func promoteAdmin(gdb *gorm.DB, email string, logger *slog.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))

	result := gdb.Model(&models.User{}).Where("email = ?", email).Update("role", types.RoleAdmin)
	if result.Error != nil {
		return fmt.Errorf("promote %s: %w", email, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no user with email %s", email)
	}

	logger.Info("user promoted to admin", "email", email)
	return nil
}

func serve(handler http.Handler, port string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
