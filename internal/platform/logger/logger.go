// Package logger provides a zerolog wrapper with opinionated defaults and
// moderation-scoped logging support
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	StaticFields map[string]string
}

// FromEnv builds Options from LOG_* environment variables directly (no
// config package involved, so there is no import cycle)
func FromEnv() Options {
	get := func(k, def string) string {
		if v := strings.TrimSpace(os.Getenv("LOG_" + k)); v != "" {
			return v
		}
		return def
	}
	return Options{
		Level:      strings.ToLower(get("LEVEL", "debug")),
		Format:     strings.ToLower(get("FORMAT", "console")),
		Service:    get("SERVICE", ""),
		Component:  get("COMPONENT", ""),
		WithCaller: strings.EqualFold(get("CALLER", "false"), "true"),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Logger is the project-wide logging type - today it's just a zerolog.Logger, but it can be swapped later
type Logger = zerolog.Logger

// Get returns the process-wide root logger as a pointer
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init configures zerolog and builds the root logger, safe to call once
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var w io.Writer = os.Stdout
		if opt.Writer != nil {
			w = opt.Writer
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()

		if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
			ctx = ctx.Str("go_version", bi.GoVersion)
		}
		if opt.Service != "" {
			ctx = ctx.Str("service", opt.Service)
		}
		if opt.Component != "" {
			ctx = ctx.Str("component", opt.Component)
		}
		for k, v := range opt.StaticFields {
			ctx = ctx.Str(k, v)
		}

		log := ctx.Logger()
		if opt.WithCaller {
			log = log.With().Caller().Logger()
		}

		root.Store(&log)
		inited.Store(true)
	})
}

// parseLevel supports string-only levels
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.DebugLevel
	}
}

type ctxKey struct{ name string }

var (
	keyChatID   = ctxKey{"chat_id"}
	keyUserID   = ctxKey{"user_id"}
	keyUpdateID = ctxKey{"update_id"}
)

// WithModeration annotates ctx with the (chat, user) pair every moderation
// event is keyed by; zero ids are skipped
func WithModeration(ctx context.Context, chatID, userID int64) context.Context {
	if chatID != 0 {
		ctx = context.WithValue(ctx, keyChatID, chatID)
	}
	if userID != 0 {
		ctx = context.WithValue(ctx, keyUserID, userID)
	}
	return ctx
}

// WithUpdate annotates ctx with the transport update id
func WithUpdate(ctx context.Context, updateID int64) context.Context {
	return context.WithValue(ctx, keyUpdateID, updateID)
}

// C returns a child logger enriched from ctx (chat_id, user_id, update_id)
func C(ctx context.Context) *Logger {
	l := Get()
	builder := l.With()
	if v, ok := ctx.Value(keyChatID).(int64); ok && v != 0 {
		builder = builder.Int64("chat_id", v)
	}
	if v, ok := ctx.Value(keyUserID).(int64); ok && v != 0 {
		builder = builder.Int64("user_id", v)
	}
	if v, ok := ctx.Value(keyUpdateID).(int64); ok && v != 0 {
		builder = builder.Int64("update_id", v)
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
