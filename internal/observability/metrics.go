package observability

import (
	"context"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long jobs, admin requests and callbacks take
// - Traffic: Submissions, status reads and requests
// - Errors: Failed submissions, unreadable statuses, failed jobs
// - Saturation: Jobs currently in flight
type Metrics struct {
	meter metric.Meter

	// Admin HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Job metrics (Latency, Traffic, Errors, Saturation)
	JobDuration    metric.Float64Histogram
	JobsTotal      metric.Int64Counter
	JobErrorsTotal metric.Int64Counter
	JobsActive     metric.Int64UpDownCounter

	// Protocol metrics (Traffic, Errors)
	SubmissionsTotal metric.Int64Counter
	StatusReadsTotal metric.Int64Counter

	// Callback metrics (Latency, Traffic, Errors)
	NotifyDuration  metric.Float64Histogram
	NotifyDelivered metric.Int64Counter
	NotifyFailed    metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter
// backed by its own registry. The returned handler serves that registry.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("joblauncher")
	m := &Metrics{meter: meter}

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Job metrics
	m.JobDuration, err = meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Time from submission to resolved outcome in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 900, 1800, 3600, 7200),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsTotal, err = meter.Int64Counter(
		"jobs_total",
		metric.WithDescription("Total number of jobs launched"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobErrorsTotal, err = meter.Int64Counter(
		"job_errors_total",
		metric.WithDescription("Total number of jobs that did not succeed, by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of jobs between submission and outcome (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Protocol metrics
	m.SubmissionsTotal, err = meter.Int64Counter(
		"submissions_total",
		metric.WithDescription("Total submission attempts, by success"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.StatusReadsTotal, err = meter.Int64Counter(
		"status_reads_total",
		metric.WithDescription("Total exit status reads by the resolver, by transient"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Callback metrics
	m.NotifyDuration, err = meter.Float64Histogram(
		"notify_duration_seconds",
		metric.WithDescription("Callback delivery latency in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, nil, err
	}

	m.NotifyDelivered, err = meter.Int64Counter(
		"notify_delivered_total",
		metric.WithDescription("Total events successfully delivered"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.NotifyFailed, err = meter.Int64Counter(
		"notify_failed_total",
		metric.WithDescription("Total events failed after retries"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordSubmission records one submission attempt.
func (m *Metrics) RecordSubmission(ctx context.Context, success bool) {
	m.SubmissionsTotal.Add(ctx, 1, WithSuccess(success))
}

// RecordStatusRead records one resolver read of the exit-status channel.
func (m *Metrics) RecordStatusRead(ctx context.Context, transient bool) {
	m.StatusReadsTotal.Add(ctx, 1, metric.WithAttributes(transientAttr(transient)))
}

// RecordJobStarted records a job entering submission.
func (m *Metrics) RecordJobStarted(ctx context.Context) {
	m.JobsTotal.Add(ctx, 1)
	m.JobsActive.Add(ctx, 1)
}

// RecordJobFinished records a job's outcome.
func (m *Metrics) RecordJobFinished(ctx context.Context, outcome string, durationSeconds float64) {
	attrs := WithOutcome(outcome)
	m.JobDuration.Record(ctx, durationSeconds, attrs)
	m.JobsActive.Add(ctx, -1)

	if outcome != outcomeSucceeded {
		m.JobErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordNotification records a callback delivery, retries included.
func (m *Metrics) RecordNotification(ctx context.Context, delivered bool, durationSeconds float64) {
	m.NotifyDuration.Record(ctx, durationSeconds, WithSuccess(delivered))
	if delivered {
		m.NotifyDelivered.Add(ctx, 1)
	} else {
		m.NotifyFailed.Add(ctx, 1)
	}
}
