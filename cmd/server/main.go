package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"consigna/backend/internal/cache"
	"consigna/backend/internal/config"
	"consigna/backend/internal/httpapi"
	"consigna/backend/internal/invoice"
	"consigna/backend/internal/logging"
	"consigna/backend/internal/mailer"
	"consigna/backend/internal/metrics"
	"consigna/backend/internal/money"
	"consigna/backend/internal/service"
	"consigna/backend/internal/store"
	"consigna/backend/internal/store/memory"
	pgstore "consigna/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}
	if len(cfg.AuthSecret) < 32 {
		log.Warn("AUTH_SECRET is short or unset; do not run this outside development")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(log)
		log.Info("repository: in-memory")
	}

	var drafts cache.DraftStore = cache.NewMemoryDraftStore()
	if cfg.RedisAddr != "" {
		redisDrafts := cache.NewRedisDraftStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisDrafts.Ping(ctx); err != nil {
			log.Warn("redis unavailable, keeping drafts in memory", zap.Error(err))
			_ = redisDrafts.Close()
		} else {
			drafts = redisDrafts
			closers = append(closers, redisDrafts.Close)
			log.Info("drafts: redis")
		}
	} else {
		log.Info("drafts: in-memory")
	}

	var sender mailer.Sender = mailer.NewLogSender(log)
	if cfg.SESFromEmail != "" {
		ses, err := mailer.NewSESSender(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESReplyTo)
		if err != nil {
			log.Fatal("ses client setup failed", zap.Error(err))
		}
		sender = ses
		log.Info("mailer: ses", zap.String("region", cfg.SESRegion))
	} else {
		log.Info("mailer: log only")
	}

	m := metrics.New()
	svc := service.New(repo, drafts, sender, m, log, service.Options{
		StoreLabel:        cfg.StoreLabel,
		Location:          cfg.ReportLocation,
		SettlementTimeout: cfg.SettlementTimeout,
		EmailTimeout:      cfg.EmailTimeout,
		DraftTTL:          cfg.DraftTTL,
		Seller: invoice.Seller{
			Name:    cfg.SellerName,
			Address: cfg.SellerAddress,
			Email:   cfg.SellerEmail,
		},
		Currency: money.NewFormatter(cfg.CurrencySymbol, language.English),
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL, repo, log)
	api := httpapi.New(svc, auth, m, log, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.EmailTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("consignment backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error("close error", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.IsProduction() {
		if len(cfg.AuthSecret) < 32 {
			return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
		}
		if cfg.AllowedOrigin == "*" {
			return fmt.Errorf("ALLOWED_ORIGIN must name a single origin in production")
		}
	}
	return nil
}
