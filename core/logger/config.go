package logger

import (
	"log/slog"
	"strings"
)

// Config holds logger settings loaded from the environment.
type Config struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"text"`
	Service string `env:"LOG_SERVICE" envDefault:"krustie"`
}

// NewFromConfig creates a logger from cfg. Unknown levels fall back to info.
func NewFromConfig(cfg Config, opts ...Option) *slog.Logger {
	base := []Option{
		WithLevel(ParseLevel(cfg.Level)),
		WithAttr(slog.String("service", cfg.Service)),
	}
	if Format(strings.ToLower(cfg.Format)) == FormatJSON {
		base = append(base, WithJSONFormatter())
	}
	return New(append(base, opts...)...)
}

// ParseLevel converts a level name such as "debug" or "WARN" to a slog.Level.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
