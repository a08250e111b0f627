package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sodersten/tipsvalue/internal/analyzer"
	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/logging"
	"github.com/sodersten/tipsvalue/internal/pkg/storage"
	"github.com/sodersten/tipsvalue/internal/providers"
	_ "github.com/sodersten/tipsvalue/internal/providers/all"
)

const defaultConfigPath = "configs/local.yaml"

func main() {
	fmt.Println("Starting tipsvalue analyzer...")

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	var configPath string
	flag.StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("analyzer: loaded environment from .env")
	}

	fmt.Printf("Loading config from: %s\n", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	_, err = logging.SetupLogger(&cfg.Logging, "analyzer")
	if err != nil {
		log.Printf("Warning: failed to setup logging: %v, continuing with default logger", err)
	} else {
		slog.Info("Logging initialized", "service", "analyzer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("analyzer: failed to open storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("analyzer: error closing storage: %v", err)
		}
	}()
	slog.Info("Storage ready", "driver", cfg.Storage.Driver)

	var cache *storage.QuoteCache
	if cfg.Cache.Enabled {
		ttl, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			log.Fatalf("analyzer: invalid cache ttl %q: %v", cfg.Cache.TTL, err)
		}
		cache, err = storage.NewQuoteCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, ttl)
		if err != nil {
			// The cache is an optimization; run without it rather than die.
			slog.Warn("Quote cache unavailable, continuing without it", "error", err)
			log.Printf("analyzer: quote cache unavailable: %v", err)
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
			slog.Info("Quote cache ready", "addr", cfg.Cache.Addr, "ttl", ttl)
		}
	}

	odds, err := providers.BuildOdds(cfg.Providers.Odds)
	if err != nil {
		log.Fatalf("analyzer: failed to build odds providers: %v", err)
	}
	experts, err := providers.BuildExperts(cfg.Providers.Experts)
	if err != nil {
		log.Fatalf("analyzer: failed to build expert providers: %v", err)
	}
	slog.Info("Providers ready", "odds", len(odds), "experts", len(experts))

	svc := analyzer.New(cfg, store, cache, odds, experts)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping analyzer...")
		log.Println("Received shutdown signal, stopping analyzer...")
		cancel()
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong\n"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	svc.RegisterHTTP(mux)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.Addr)
		log.Printf("analyzer: http server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			log.Printf("analyzer: http server error: %v", err)
		}
	}()

	if err := svc.Start(ctx); err != nil {
		slog.Error("Analyzer failed", "error", err)
		log.Fatalf("Analyzer failed: %v", err)
	}

	slog.Info("Analyzer stopped")
	log.Println("Analyzer stopped")
}

// applyEnvOverrides lets deploy environments inject secrets without
// writing them into the config file.
func applyEnvOverrides(cfg *config.Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
		log.Println("analyzer: using Telegram bot token from environment")
	}
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.Telegram.ChatID = chatID
			log.Printf("analyzer: using Telegram chat ID from environment: %d", chatID)
		}
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
		log.Println("analyzer: using PostgreSQL DSN from POSTGRES_DSN environment variable")
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.Addr = addr
		log.Println("analyzer: using Redis address from environment")
	}
}
