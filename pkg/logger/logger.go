package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewHandler creates a JSON slog handler. It writes to stdout and, when
// logger.file is set, to a rotating file as well. A nil opts takes the level
// from logger.level.
func NewHandler(opts *slog.HandlerOptions) slog.Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: ParseLevel(viper.GetString("logger.level"))}
	}

	var w io.Writer = os.Stdout
	if file := viper.GetString("logger.file"); file != "" {
		rot := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    intOr(viper.GetInt("logger.max_size_mb"), 50),
			MaxBackups: intOr(viper.GetInt("logger.max_backups"), 3),
			MaxAge:     intOr(viper.GetInt("logger.max_age_days"), 7),
		}
		w = io.MultiWriter(os.Stdout, rot)
	}

	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}
