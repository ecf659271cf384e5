package interceptors

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

var labels = []string{"route", "handler", "status"}

// Metrics counts handler executions and observes their duration.
type Metrics struct {
	handled  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// that are already registered are reused.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	handled, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_executions_total",
		Help:      "Number of handler executions by route and outcome status.",
	}, labels))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Handler execution latency, interceptors below this one included.",
		Buckets:   prometheus.DefBuckets,
	}, labels))
	if err != nil {
		return nil, err
	}
	return &Metrics{handled: handled, duration: duration}, nil
}

// Intercept implements pipeline.Interceptor. Successful executions are
// labelled "ok"; failures carry the error's HTTP status.
func (m *Metrics) Intercept(ec *pipeline.ExecutionContext, next pipeline.CallHandler) (any, error) {
	start := time.Now()
	v, err := next.Handle()

	status := "ok"
	if err != nil {
		status = strconv.Itoa(exceptions.Status(err))
	}
	values := []string{ec.Route(), handlerName(ec), status}
	m.handled.WithLabelValues(values...).Inc()
	m.duration.WithLabelValues(values...).Observe(time.Since(start).Seconds())
	return v, err
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var exists prometheus.AlreadyRegisteredError
		if errors.As(err, &exists) {
			if existing, ok := exists.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "registering handler metrics")
	}
	return c, nil
}
