package config

import (
	"log/slog"
	"strings"

	golobby "github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Config struct {
	Mosaic   MosaicConfig
	Gallery  GalleryConfig
	Pushover PushoverConfig
}

type MosaicConfig struct {
	BackgroundJobsEnabled bool   `env:"BACKGROUND_JOBS_ENABLED"`
	ControlToken          string `env:"CONTROL_TOKEN"`
	DbPath                string `env:"DB_PATH"`
	FadeMs                int    `env:"FADE_MS"`
	LogLevel              string `env:"LOG_LEVEL"`
	Port                  int    `env:"PORT"`
	PrefetchDepth         int    `env:"PREFETCH_DEPTH"`
	StorageDir            string `env:"STORAGE_DIR"`
	UpdateIntervalSeconds int    `env:"UPDATE_INTERVAL_SECONDS"`
}

type GalleryConfig struct {
	Origin        string `env:"GALLERY_ORIGIN"`
	BackendOrigin string `env:"GALLERY_BACKEND_ORIGIN"`
	ShareCode     string `env:"GALLERY_SHARE_CODE"`
	WebhookSecret string `env:"GALLERY_WEBHOOK_SECRET"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

// Load feeds the config struct from the environment and fills in the
// defaults a fresh checkout can run with.
func Load() (Config, error) {
	c := Config{
		Mosaic: MosaicConfig{
			BackgroundJobsEnabled: true,
			DbPath:                "mosaic.db",
			FadeMs:                1200,
			LogLevel:              "info",
			Port:                  8080,
			PrefetchDepth:         3,
			StorageDir:            "/tmp",
			UpdateIntervalSeconds: 7,
		},
	}
	if err := golobby.New().AddFeeder(feeder.Env{}).AddStruct(&c).Feed(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Mosaic.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
