package logging_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-dispatch/framework/config"
	"github.com/km-arc/go-dispatch/framework/logging"
)

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" || entry["level"] != "warn" {
		t.Errorf("entry %v", entry)
	}
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Level: "loud"}, &buf)
	log.Debug().Msg("debug")
	log.Info().Msg("info")
	if strings.Contains(buf.String(), `"debug"`) || !strings.Contains(buf.String(), `"info"`) {
		t.Errorf("got %q", buf.String())
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Format: "console", NoColor: true}, &buf)
	log.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestMiddleware_AccessLine(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Level: "info"}, &buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(log)...)
	r.Get("/cats", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("meow"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cats", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry[logging.FieldStatus] != float64(http.StatusTeapot) || entry[logging.FieldPath] != "/cats" {
		t.Errorf("entry %v", entry)
	}
	if entry[logging.FieldSize] != float64(4) {
		t.Errorf("size %v", entry[logging.FieldSize])
	}
	if id, _ := entry[logging.FieldRequestID].(string); id == "" {
		t.Error("request_id missing")
	}
}
