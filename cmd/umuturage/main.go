package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
	"github.com/yvesmugisha901/umuturage-backend/internal/broker"
	"github.com/yvesmugisha901/umuturage-backend/internal/config"
	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/email"
	"github.com/yvesmugisha901/umuturage-backend/internal/logging"
	"github.com/yvesmugisha901/umuturage-backend/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database())
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var opts []server.Option
	if cfg.AMQPURL != "" {
		p, err := broker.Dial(ctx, broker.Config{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange}, logger)
		if err != nil {
			logger.Error("failed to connect to broker", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		opts = append(opts, server.WithPublisher(p))
	} else {
		logger.Info("AMQP_URL not set, event publishing disabled")
	}

	if mailer := email.NewClient(cfg.PostmarkToken, cfg.PostmarkFrom); mailer.Configured() {
		opts = append(opts, server.WithMailer(mailer))
	} else {
		logger.Info("POSTMARK_SERVER_TOKEN not set, notification emails disabled")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}
	srv := server.New(db, tokens, logger, opts...)

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("umuturage listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	srv.Wait()
}
