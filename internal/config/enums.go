package config

import (
	"log/slog"

	"git.home.luguber.info/inful/marksite/internal/foundation/normalization"
)

// CacheValidation selects how the post cache decides an entry is still fresh.
type CacheValidation string

const (
	// CacheValidationMTime reuses an entry when the file's modification time is unchanged.
	CacheValidationMTime CacheValidation = "mtime"
	// CacheValidationContent reuses an entry when the content fingerprint is unchanged.
	CacheValidationContent CacheValidation = "content"
)

var cacheValidationNormalizer = normalization.NewNormalizer("cache_validation", map[string]CacheValidation{
	"mtime":   CacheValidationMTime,
	"content": CacheValidationContent,
}, CacheValidationMTime)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug": LogLevelDebug,
	"info":  LogLevelInfo,
	"warn":  LogLevelWarn,
	"error": LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// SlogLevel maps the level onto log/slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
