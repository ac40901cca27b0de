package logger

import (
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger with map-style structured fields
type Logger struct {
	logger zerolog.Logger
}

// Fields is the structured payload attached to a log line
type Fields = map[string]interface{}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, console
	Output      io.Writer
	EnableColor bool
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// New builds a logger without touching the global one
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.EnableColor,
		}
	}
	zl := zerolog.New(output).Level(parseLogLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{logger: zl}
}

// Initialize replaces the global logger
func Initialize(cfg Config) {
	l := New(cfg)

	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()

	log.Logger = l.logger
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger, creating a console logger on first use
func Get() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	Initialize(Config{
		Level:       "info",
		Format:      "console",
		EnableColor: true,
	})
	return Get()
}

// WithContext returns a child logger carrying the given fields on every line
func (l *Logger) WithContext(fields Fields) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// write attaches caller and fields; skip 2 lands on whoever called Debug/Info/...
func (l *Logger) write(event *zerolog.Event, msg string, fields []Fields) {
	if event == nil {
		return
	}
	if pc, file, line, ok := runtime.Caller(2); ok {
		event = event.Str("caller", zerolog.CallerMarshalFunc(pc, file, line))
	}
	for _, f := range fields {
		for k, v := range f {
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.write(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.write(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.write(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, err error, fields ...Fields) {
	l.write(l.logger.Error().Err(err), msg, fields)
}

// Fatal logs and exits the process
func (l *Logger) Fatal(msg string, err error, fields ...Fields) {
	l.write(l.logger.Fatal().Err(err), msg, fields)
}

// Package-level helpers on the global logger

func Debug(msg string, fields ...Fields) {
	l := Get()
	l.write(l.logger.Debug(), msg, fields)
}

func Info(msg string, fields ...Fields) {
	l := Get()
	l.write(l.logger.Info(), msg, fields)
}

func Warn(msg string, fields ...Fields) {
	l := Get()
	l.write(l.logger.Warn(), msg, fields)
}

func Error(msg string, err error, fields ...Fields) {
	l := Get()
	l.write(l.logger.Error().Err(err), msg, fields)
}

func Fatal(msg string, err error, fields ...Fields) {
	l := Get()
	l.write(l.logger.Fatal().Err(err), msg, fields)
}

// WithContext returns a child of the global logger
func WithContext(fields Fields) *Logger {
	return Get().WithContext(fields)
}
