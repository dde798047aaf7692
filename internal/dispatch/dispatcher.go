// Package dispatch fans one feature query out to many endpoints concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/common/metrics"
	"borehole-workers/internal/common/observability"
	"borehole-workers/internal/models"
	"borehole-workers/internal/wfs"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrTaskPanicked marks a result whose task panicked.
	ErrTaskPanicked = errors.New("endpoint task panicked")
	// ErrServiceException marks a 2xx response carrying an OGC exception report.
	ErrServiceException = errors.New("service exception report")
	// ErrNotScheduled marks a task the pool refused to run.
	ErrNotScheduled = errors.New("endpoint task not scheduled")
)

// EndpointError is the failure detail recorded for one endpoint.
type EndpointError struct {
	URL string
	Err error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("endpoint %s: %v", e.URL, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// RequestBuilder turns a GetFeature description into a request.
type RequestBuilder interface {
	MakeRequest(ctx context.Context, r wfs.GetFeatureRequest) (*http.Request, error)
}

// Transport executes a request and returns the body as text.
type Transport interface {
	Execute(req *http.Request) (string, error)
}

// Template is the part of a query shared by every endpoint. TypeName is used
// for endpoints that do not advertise their own.
type Template struct {
	TypeName     string
	Fragment     string
	MaxFeatures  int
	OutputFormat string
}

type Option func(*Dispatcher)

// WithMaxWorkers caps the pool size. n <= 0 sizes the pool to the endpoint count.
func WithMaxWorkers(n int) Option {
	return func(d *Dispatcher) { d.maxWorkers = n }
}

func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithObservability(o *observability.Observability) Option {
	return func(d *Dispatcher) { d.obs = o }
}

type Dispatcher struct {
	builder    RequestBuilder
	transport  Transport
	maxWorkers int
	logger     logger.Logger
	obs        *observability.Observability
}

func New(builder RequestBuilder, transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		builder:   builder,
		transport: transport,
		logger:    logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one task per endpoint and waits for all of them. Results are
// in endpoint order. Failures are recorded on the result, never returned.
// Cancelling ctx does not stop tasks already dispatched.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoints []models.Endpoint, tmpl Template) []models.QueryResult {
	results := make([]models.QueryResult, len(endpoints))
	if len(endpoints) == 0 {
		return results
	}

	ctx, span := d.obs.StartSpan(ctx, "dispatch",
		attribute.Int("endpoints", len(endpoints)),
		attribute.String("typeName", tmpl.TypeName),
	)
	defer span.End()
	ctx = context.WithoutCancel(ctx)

	size := len(endpoints)
	if d.maxWorkers > 0 && d.maxWorkers < size {
		size = d.maxWorkers
	}

	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		d.logger.Error("endpoint task panic escaped recovery", map[string]interface{}{"panic": fmt.Sprint(v)})
	}))
	if err != nil {
		for i, ep := range endpoints {
			results[i] = failure(ep, fmt.Errorf("%w: %v", ErrNotScheduled, err))
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, ep := range endpoints {
		task := models.QueryTask{
			Index:       i,
			Endpoint:    ep,
			Fragment:    tmpl.Fragment,
			MaxFeatures: tmpl.MaxFeatures,
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[task.Index] = d.run(ctx, task, tmpl)
		})
		if submitErr != nil {
			wg.Done()
			results[i] = failure(ep, fmt.Errorf("%w: %v", ErrNotScheduled, submitErr))
		}
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
	return results
}

func (d *Dispatcher) run(ctx context.Context, task models.QueryTask, tmpl Template) (res models.QueryResult) {
	host := task.Endpoint.Host()
	ctx, span := d.obs.StartSpan(ctx, "endpoint.query",
		attribute.String("endpoint", task.Endpoint.URL),
		attribute.Int("index", task.Index),
	)
	start := time.Now()
	metrics.DispatchInFlight.Inc()

	defer func() {
		if r := recover(); r != nil {
			res = failure(task.Endpoint, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
		}
		metrics.DispatchInFlight.Dec()
		elapsed := time.Since(start)
		metrics.EndpointRequestDuration.WithLabelValues(host).Observe(elapsed.Seconds())

		if res.Success {
			metrics.EndpointRequests.WithLabelValues(host, metrics.OutcomeSuccess).Inc()
		} else {
			metrics.EndpointRequests.WithLabelValues(host, metrics.OutcomeFailure).Inc()
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			d.logger.Warn("endpoint query failed", map[string]interface{}{
				logger.FieldEndpoint:   task.Endpoint.URL,
				logger.FieldTaskIndex:  task.Index,
				logger.FieldDurationMS: elapsed.Milliseconds(),
				"error":                res.Err.Error(),
			})
		}
		span.End()
	}()

	typeName := task.Endpoint.TypeName
	if typeName == "" {
		typeName = tmpl.TypeName
	}

	req, err := d.builder.MakeRequest(ctx, wfs.GetFeatureRequest{
		ServiceURL:   task.Endpoint.URL,
		TypeName:     typeName,
		Filter:       task.Fragment,
		MaxFeatures:  task.MaxFeatures,
		OutputFormat: tmpl.OutputFormat,
	})
	if err != nil {
		return failure(task.Endpoint, err)
	}

	body, err := d.transport.Execute(req)
	if err != nil {
		return failure(task.Endpoint, err)
	}
	if isExceptionReport(body) {
		return failure(task.Endpoint, fmt.Errorf("%w: %s", ErrServiceException, exceptionText(body)))
	}

	return models.QueryResult{Endpoint: task.Endpoint, Success: true, Payload: body}
}

func failure(ep models.Endpoint, err error) models.QueryResult {
	return models.QueryResult{
		Endpoint: ep,
		Success:  false,
		Err:      &EndpointError{URL: ep.URL, Err: err},
	}
}

// isExceptionReport detects OGC exception documents returned with a 2xx status.
func isExceptionReport(body string) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(head, "ExceptionReport")
}

func exceptionText(body string) string {
	const openTag, closeTag = "ExceptionText>", "</"
	i := strings.Index(body, openTag)
	if i < 0 {
		return "no exception text"
	}
	rest := body[i+len(openTag):]
	if j := strings.Index(rest, closeTag); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}
