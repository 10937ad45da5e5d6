// Command gateway runs the inbound chat-message gateway: a single HTTP
// endpoint that authenticates tenant channels, deduplicates webhook
// deliveries, enforces billing eligibility and human-handoff suppression,
// debounces rapid messages, and dispatches turns to conversational handlers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobot/go-bot-gateway/internal/bot"
	"github.com/autobot/go-bot-gateway/internal/config"
	httpapi "github.com/autobot/go-bot-gateway/internal/http"
	"github.com/autobot/go-bot-gateway/internal/kb"
	"github.com/autobot/go-bot-gateway/internal/observability"
	"github.com/autobot/go-bot-gateway/internal/repo"
	"github.com/autobot/go-bot-gateway/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	registry := bot.NewRegistry()
	router := &bot.Router{}
	if cfg.KBPath != "" {
		idx, kerr := kb.Load(cfg.KBPath)
		if kerr != nil {
			log.Fatal().Err(kerr).Str("kb_path", cfg.KBPath).Msg("knowledge base load failed")
		}
		router.KB = idx
		log.Info().Int("snippets", idx.Len()).Str("kb_path", cfg.KBPath).Msg("knowledge base loaded")
	}
	registry.Register(bot.DefaultHandlerKey, router)
	registry.Register("echo", &bot.Echo{})

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, registry, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("gateway stopped")
}
