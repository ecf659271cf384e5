package interceptors_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	gohttp "github.com/km-arc/go-dispatch/framework/http"
	"github.com/km-arc/go-dispatch/framework/interceptors"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

type CatsController struct{}

func newEC() *pipeline.ExecutionContext {
	r := httptest.NewRequest(http.MethodGet, "/cats", nil)
	return pipeline.NewExecutionContext(httptest.NewRecorder(), r).Bind(pipeline.Handle{
		Controller: reflect.TypeFor[*CatsController](),
		Method:     "FindAll",
		Route:      "/cats",
	})
}

func ok(v any) pipeline.CallHandler {
	return pipeline.HandlerFunc(func() (any, error) { return v, nil })
}

func fail(err error) pipeline.CallHandler {
	return pipeline.HandlerFunc(func() (any, error) { return nil, err })
}

// ── Logging ──────────────────────────────────────────────────────────────────

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)

	v, err := interceptors.Logging(l).Intercept(newEC(), ok("meow"))
	if err != nil || v != "meow" {
		t.Fatalf("result changed: %v, %v", v, err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v (%s)", err, buf.String())
	}
	if line["level"] != "debug" || line["route"] != "/cats" || line["component"] != "handler" {
		t.Errorf("unexpected line %v", line)
	}
	if line["handler"] != "*interceptors_test.CatsController.FindAll" {
		t.Errorf("handler: %v", line["handler"])
	}
}

func TestLogging_ErrorLevels(t *testing.T) {
	tests := map[string]struct {
		err   error
		level string
	}{
		"client error": {exceptions.NotFound("no cat"), "warn"},
		"server error": {errors.New("db down"), "error"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := interceptors.Logging(zerolog.New(&buf)).Intercept(newEC(), fail(tt.err))
			if !errors.Is(err, tt.err) {
				t.Fatalf("error changed: %v", err)
			}
			var line map[string]any
			_ = json.Unmarshal(buf.Bytes(), &line)
			if line["level"] != tt.level {
				t.Errorf("level: got %v, want %s", line["level"], tt.level)
			}
		})
	}
}

// ── Metrics ──────────────────────────────────────────────────────────────────

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := interceptors.NewMetrics(reg, "test")
	if err != nil {
		t.Fatal(err)
	}

	_, _ = m.Intercept(newEC(), ok(1))
	_, _ = m.Intercept(newEC(), ok(2))
	_, _ = m.Intercept(newEC(), fail(exceptions.Conflict("taken")))

	if n, err := testutil.GatherAndCount(reg, "test_handler_executions_total"); err != nil || n != 2 {
		t.Errorf("series: got %d (%v), want 2", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "test_handler_duration_seconds"); err != nil || n != 2 {
		t.Errorf("histogram series: got %d (%v), want 2", n, err)
	}

	again, err := interceptors.NewMetrics(reg, "test")
	if err != nil {
		t.Fatalf("re-registration should reuse collectors: %v", err)
	}
	_, _ = again.Intercept(newEC(), ok(3))

	got, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]float64{}
	for _, mf := range got {
		if mf.GetName() != "test_handler_executions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "status" {
					counts[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if diff := cmp.Diff(map[string]float64{"ok": 3, "409": 1}, counts); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

// ── Tracing ──────────────────────────────────────────────────────────────────

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ic := interceptors.Tracing(tp)

	ec := newEC()
	var inner trace.SpanContext
	_, _ = ic.Intercept(ec, pipeline.HandlerFunc(func() (any, error) {
		inner = trace.SpanContextFromContext(interceptors.SpanContext(ec))
		return "ok", nil
	}))
	_, _ = ic.Intercept(newEC(), fail(errors.New("boom")))
	_, _ = ic.Intercept(newEC(), fail(exceptions.BadRequest("bad")))

	spans := sr.Ended()
	if len(spans) != 3 {
		t.Fatalf("spans: got %d, want 3", len(spans))
	}
	if spans[0].Name() != "GET /cats" || spans[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("span: %s %v", spans[0].Name(), spans[0].SpanKind())
	}
	if !inner.IsValid() || inner.SpanID() != spans[0].SpanContext().SpanID() {
		t.Error("handler should see the interceptor's span")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("5xx status: %v", spans[1].Status())
	}
	if spans[2].Status().Code == codes.Error || len(spans[2].Events()) != 1 {
		t.Errorf("4xx should record the error without failing the span: %v", spans[2].Status())
	}
}

// ── Envelope ─────────────────────────────────────────────────────────────────

func TestEnvelope(t *testing.T) {
	res := gohttp.Text(200, "raw")
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"value", []string{"tom"}, map[string]any{"data": []string{"tom"}}},
		{"nil", nil, nil},
		{"response", res, res},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := interceptors.Envelope().Intercept(newEC(), ok(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
