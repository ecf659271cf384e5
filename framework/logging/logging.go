// Package logging builds the application's zerolog logger and the HTTP
// access-log middleware mounted on the host router.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/km-arc/go-dispatch/framework/config"
)

// Standard field keys.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldRoute     = "route"
	FieldHandler   = "handler"
	FieldStatus    = "status"
	FieldSize      = "size"
	FieldDuration  = "duration_ms"
)

// New creates a logger from config. Output defaults to stdout.
//
//	log := logging.New(cfg.Log, nil)
//	log.Info().Str(logging.FieldComponent, "kernel").Msg("routes mapped")
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if f := strings.ToLower(cfg.Format); f == "console" || f == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: cfg.NoColor}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger { return zerolog.Nop() }

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

// Middleware returns the access-log chain: it stores l in the request
// context, tags it with chi's request id, and logs one line per request.
// Mount it after middleware.RequestID.
func Middleware(l zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(l),
		requestID,
		hlog.AccessHandler(access),
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str(FieldRequestID, id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func access(r *http.Request, status, size int, d time.Duration) {
	ev := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		ev = hlog.FromRequest(r).Error()
	}
	ev.Str(FieldMethod, r.Method).
		Str(FieldPath, r.URL.Path).
		Int(FieldStatus, status).
		Int(FieldSize, size).
		Dur(FieldDuration, d).
		Msg("request")
}
