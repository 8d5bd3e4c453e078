package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cardscan-bot/api/internal/config"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/extract/deepseek"
	"cardscan-bot/api/internal/extract/gemini"
	"cardscan-bot/api/internal/extract/openai"
	"cardscan-bot/api/internal/handle"
	"cardscan-bot/api/internal/httpserver"
	"cardscan-bot/api/internal/ocr/vision"
	"cardscan-bot/api/internal/pipeline"
	"cardscan-bot/api/internal/store"
)

// Standalone JSON API: the same scan pipeline as the bot, without Telegram.
func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	var db *sql.DB
	var cards *store.CardRepo
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open")
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping")
		}
		cancel()
		cards = store.NewCardRepo(db)
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		if err := cards.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema")
		}
		cancel()
	}

	engines := extract.Engines{}
	if cfg.GeminiAPIKey != "" {
		g := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		g.SendImage = cfg.SendImage
		engines.Gemini = g
	}
	if cfg.OpenAIAPIKey != "" {
		o := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		o.SendImage = cfg.SendImage
		engines.OpenAI = o
	}
	if cfg.DeepseekAPIKey != "" {
		engines.Deepseek = deepseek.New(cfg.DeepseekAPIKey, cfg.DeepseekModel)
	}
	def, err := engines.Get(cfg.DefaultEngine)
	if err != nil {
		log.Warn().Err(err).Msg("default engine unavailable, running without AI enhancement")
	}

	orch := pipeline.New(vision.New(cfg.VisionAPIKey), def, pipeline.Options{
		Enhance:       cfg.EnhanceEnabled,
		RemoteTimeout: cfg.RemoteTimeout,
		Langs:         cfg.Langs,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(db))
	handle.New(orch, &engines, cards).Routes(mux)

	if err := httpserver.Start("0.0.0.0:"+cfg.Port, mux); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}
