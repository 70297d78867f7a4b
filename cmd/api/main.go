package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feldbank/banking-api/internal/config"
	"github.com/feldbank/banking-api/internal/handler"
	"github.com/feldbank/banking-api/internal/logging"
	"github.com/feldbank/banking-api/internal/middleware"
	"github.com/feldbank/banking-api/internal/repository"
	"github.com/feldbank/banking-api/internal/service"
	"github.com/feldbank/banking-api/internal/service/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("banking-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	pendingRepo := repository.NewPendingTransactionRepository(db)
	triggerRepo := repository.NewTriggerRepository(db)

	transfers := transfer.NewService(accountRepo, txRepo, pendingRepo, triggerRepo, db, cfg.ScheduleTolerance())
	accounts := service.NewAccountService(accountRepo)
	history := service.NewHistoryService(accountRepo, txRepo, pendingRepo)

	dispatcher := transfer.NewDispatcher(triggerRepo, transfers, slog.Default(), cfg.DispatchInterval(), cfg.DispatchBatchSize)
	go dispatcher.Start(ctx)

	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTExpiry())
	accountHandler := handler.NewAccountHandler(accounts)
	txHandler := handler.NewTransactionHandler(transfers, history)
	healthHandler := handler.NewHealthHandler(db)

	authed := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/accounts", authed(http.HandlerFunc(accountHandler.List)))
	mux.Handle("POST /api/v1/accounts/{iban}/transactions", authed(http.HandlerFunc(txHandler.List)))
	mux.Handle("POST /api/v1/transactions", authed(http.HandlerFunc(txHandler.Perform)))
	mux.Handle("PUT /api/v1/transactions", authed(http.HandlerFunc(txHandler.Save)))
	mux.Handle("DELETE /api/v1/transactions", authed(http.HandlerFunc(txHandler.Cancel)))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
