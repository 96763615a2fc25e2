package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"clubpuntos/backend/internal/archive"
	"clubpuntos/backend/internal/cache"
	"clubpuntos/backend/internal/config"
	"clubpuntos/backend/internal/fieldcrypt"
	"clubpuntos/backend/internal/httpapi"
	"clubpuntos/backend/internal/service"
	"clubpuntos/backend/internal/store"
	"clubpuntos/backend/internal/store/memory"
	pgstore "clubpuntos/backend/internal/store/postgres"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	pointsPerEuro, err := cfg.PointsPerEuroRatio()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cipher := fieldcrypt.Cipher(fieldcrypt.Noop{})
	if cfg.FieldKey != "" {
		aead, err := fieldcrypt.NewAEAD(cfg.FieldKey)
		if err != nil {
			log.Fatalf("invalid FIELD_KEY: %v", err)
		}
		cipher = aead
		log.Println("field sealing: enabled")
	}

	var repo store.Repository
	var quiescer store.Quiescer
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, cipher)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		quiescer = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		mem := memory.NewSeeded()
		repo = mem
		quiescer = mem
		log.Println("repository: in-memory")
	}

	summaryCache := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			summaryCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	archiver := archive.Archiver(archive.NoopArchiver{})
	if cfg.BackupOnClose {
		if cfg.DatabaseURL == "" || cfg.BackupDir == "" {
			log.Println("backup: BACKUP_ON_CLOSE set without DATABASE_URL and BACKUP_DIR, disabled")
		} else {
			archiver = &archive.QuiesceArchiver{
				Store: quiescer,
				Copy:  archive.PGDump(cfg.DatabaseURL, cfg.BackupDir),
			}
			log.Printf("backup: pg_dump into %s after register close", cfg.BackupDir)
		}
	}

	svc := service.New(repo, summaryCache, archiver, pointsPerEuro, cfg.SummaryCacheTTL, cfg.BackupOnClose)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("club backend listening on %s (1 point = %s EUR)", cfg.Address(), decimal.NewFromInt(1).Div(pointsPerEuro))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg *config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
