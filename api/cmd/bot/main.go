package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cardscan-bot/api/internal/config"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/extract/deepseek"
	"cardscan-bot/api/internal/extract/gemini"
	"cardscan-bot/api/internal/extract/openai"
	"cardscan-bot/api/internal/httpserver"
	"cardscan-bot/api/internal/ocr/vision"
	"cardscan-bot/api/internal/pipeline"
	"cardscan-bot/api/internal/store"
	"cardscan-bot/api/internal/telegram"
	"cardscan-bot/api/internal/util"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	// --- Postgres (optional: the bot degrades to stateless scans) ---
	var db *sql.DB
	var cards *store.CardRepo
	if dsn := resolveDSN(); dsn != "" {
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
		log.Info().Str("db", safeDSNSummary(dsn)).Msg("db connected")
		cards = store.NewCardRepo(db)
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		if err := cards.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema")
		}
		cancel()
	} else {
		log.Warn().Msg("no database configured, cards will not be saved")
	}
	if cards != nil {
		go purgeLoop(cards)
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth")
	}
	bot.Debug = false
	log.Info().Str("account", bot.Self.UserName).Msg("telegram authorized")

	engines := buildEngines(cfg)
	def, err := engines.Get(cfg.DefaultEngine)
	if err != nil {
		log.Warn().Err(err).Msg("default engine unavailable, running without AI enhancement")
	}
	manager := extract.NewManager(def)

	orch := pipeline.New(vision.New(cfg.VisionAPIKey), def, pipeline.Options{
		Enhance:       cfg.EnhanceEnabled,
		RemoteTimeout: cfg.RemoteTimeout,
		Langs:         cfg.Langs,
	})

	r := &telegram.Router{
		Bot:        bot,
		Orch:       orch,
		EngManager: manager,
		Engines:    engines,
		Cards:      cards,
	}

	// DefaultServeMux: ListenForWebhook registers its handler there.
	http.HandleFunc("/healthz", httpserver.Healthz(db))

	addr := "0.0.0.0:" + cfg.Port
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		startWebhookMode(addr, bot, r, cfg.WebhookURL)
	} else {
		startPollingMode(addr, bot, r)
	}
}

func buildEngines(cfg *config.Config) extract.Engines {
	var engines extract.Engines
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
	return engines
}

// purgeLoop drops card rows older than a year, once a day.
func purgeLoop(cards *store.CardRepo) {
	const retention = 365 * 24 * time.Hour
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := cards.PurgeOlderThan(ctx, retention)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("purge failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("purged stale cards")
		}
		time.Sleep(24 * time.Hour)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	// secret webhook path derived from the token
	path := "/webhook/" + util.SHA256Hex([]byte(bot.Token))[:16]
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal().Err(err).Msg("webhook config")
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal().Err(err).Msg("webhook register")
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Info().Msg("webhook updates channel closed")
	}()

	log.Info().Str("addr", addr).Str("path", path).Msg("webhook listening")
	if err := http.ListenAndServe(addr, nil); err != nil { // DefaultServeMux
		log.Fatal().Err(err).Msg("http server")
	}
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	go func() {
		log.Info().Str("addr", addr).Msg("health server listening")
		if err := http.ListenAndServe(addr, nil); err != nil { // DefaultServeMux
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	runPolling(context.Background(), bot, r.HandleUpdate)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// ---------------- Helpers -----------------

// resolveDSN prefers DATABASE_URL and otherwise assembles a DSN from the
// POSTGRES_* / PG* env vars. Empty means "run without storage".
func resolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	host := strings.TrimSpace(os.Getenv("PGHOST"))
	if host == "" {
		return ""
	}
	user := getenvDefault("POSTGRES_USER", "cardscan")
	pass := os.Getenv("POSTGRES_PASSWORD")
	port := getenvDefault("PGPORT", "5432")
	name := getenvDefault("POSTGRES_DB", "cardscan")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	name := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, name, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, name, user)
}
