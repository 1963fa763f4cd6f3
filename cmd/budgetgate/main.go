package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minus-twelve/budgetgate"
	"github.com/minus-twelve/budgetgate/internal/backend"
	"github.com/minus-twelve/budgetgate/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "budgetgate:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("BUDGETGATE_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := budgetgate.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	codec, err := budgetgate.NewCodec(cfg.Session.EncryptionKey)
	if err != nil {
		return err
	}

	api, err := backend.New(cfg.APIURL,
		backend.WithTimeout(cfg.Security.BackendTimeout),
		backend.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	limiter, err := budgetgate.CreateLimiter(cfg)
	if err != nil {
		return err
	}
	defer limiter.Close()

	jar := budgetgate.NewCookieJar(cfg.Session, cfg.Production())
	sessions := budgetgate.NewManager(codec, jar, api, limiter, cfg.Security, logger)
	guard := budgetgate.NewGuard(codec, budgetgate.DefaultRoutes())

	server := budgetgate.NewServer(budgetgate.ServerOptions{
		Sessions:  sessions,
		Guard:     guard,
		API:       api.Proxy("/api"),
		StaticDir: cfg.StaticDir,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("env", cfg.Env),
			slog.String("store", cfg.StoreType),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
