package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Port string

	TelegramBotToken string
	WebhookURL       string

	VisionAPIKey string

	OpenAIAPIKey   string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	DeepseekAPIKey string
	DeepseekModel  string

	// DefaultEngine names the extraction engine used when a chat has not
	// switched: "gemini" | "gpt" | "deepseek".
	DefaultEngine string

	// EnhanceEnabled gates the remote enhancement stage globally.
	EnhanceEnabled bool
	// SendImage attaches the raw card image to remote extraction requests
	// in addition to the OCR text.
	SendImage     bool
	RemoteTimeout time.Duration

	// Langs are OCR language hints.
	Langs []string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatal().Msgf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvSec(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		VisionAPIKey: mustEnv("GOOGLE_VISION_API_KEY"),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		DeepseekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepseekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),

		DefaultEngine: getEnv("DEFAULT_ENGINE", "gemini"),

		EnhanceEnabled: getEnvBool("ENHANCE_ENABLED", true),
		SendImage:      getEnvBool("SEND_IMAGE", false),
		RemoteTimeout:  getEnvSec("REMOTE_TIMEOUT_SEC", 30*time.Second),

		Langs: []string{"zh-TW", "en"},
	}
}
