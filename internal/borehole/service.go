// Package borehole runs borehole queries across every catalogued provider.
package borehole

import (
	"context"
	"errors"
	"fmt"
	"time"

	"borehole-workers/internal/aggregate"
	"borehole-workers/internal/catalog"
	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/common/metrics"
	"borehole-workers/internal/common/observability"
	"borehole-workers/internal/dispatch"
	"borehole-workers/internal/filter"
	"borehole-workers/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoHyloggerBoreholes = errors.New("unable to identify any boreholes with hylogger data")
	// ErrDiscoveryFailed is returned when every scanned-borehole endpoint failed.
	ErrDiscoveryFailed = errors.New("hylogger discovery failed on every endpoint")
	ErrTSGUnavailable  = errors.New("TSG download service is not available")
)

const csvOutputFormat = "csv"

// Dispatcher fans a query template out to endpoints.
type Dispatcher interface {
	Dispatch(ctx context.Context, endpoints []models.Endpoint, tmpl dispatch.Template) []models.QueryResult
}

// Settings are the provider-facing defaults of a Service.
type Settings struct {
	BoreholeTypeName        string
	ScannedBoreholeTypeName string
	OmitGeometry            bool
	DefaultMaxFeatures      int
	TSGCacheURL             string
	TSGServiceMessage       string
}

func SettingsFromConfig(b config.BoreholeConfig, d config.DispatchConfig) Settings {
	return Settings{
		BoreholeTypeName:        b.BoreholeTypeName,
		ScannedBoreholeTypeName: b.ScannedBoreholeTypeName,
		OmitGeometry:            b.OmitGeometry,
		DefaultMaxFeatures:      d.DefaultMaxFeatures,
		TSGCacheURL:             b.TSGCacheURL,
		TSGServiceMessage:       b.TSGServiceMessage,
	}
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

type Service struct {
	catalog    catalog.Source
	dispatcher Dispatcher
	translator filter.Translator
	settings   Settings
	logger     logger.Logger
	obs        *observability.Observability
}

func NewService(src catalog.Source, d Dispatcher, tr filter.Translator, settings Settings, opts ...Option) *Service {
	if settings.BoreholeTypeName == "" {
		settings.BoreholeTypeName = tr.TypeName()
	}
	s := &Service{
		catalog:    src,
		dispatcher: d,
		translator: tr,
		settings:   settings,
		logger:     logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FilterRequest is one borehole search.
type FilterRequest struct {
	// ServiceURL restricts the search to endpoints on the same host. Empty
	// searches every catalogued provider.
	ServiceURL   string
	Criteria     filter.Criteria
	OnlyHylogger bool
	MaxFeatures  int
	OutputFormat string
}

// CSVRequest is a bulk CSV export from explicit service URLs.
type CSVRequest struct {
	ServiceURLs []string
	Criteria    filter.Criteria
	MaxFeatures int
}

// TSGAvailability describes whether TSG file export can run.
type TSGAvailability struct {
	Available bool   `json:"available"`
	URL       string `json:"url"`
	Message   string `json:"message"`
}

// FilterBoreholes translates the criteria for the configured profile, queries
// every matching borehole endpoint and concatenates the feature documents.
// With OnlyHylogger the search is restricted to boreholes found by hylogger
// discovery on the same host.
func (s *Service) FilterBoreholes(ctx context.Context, req FilterRequest) (*models.AggregatedResult, error) {
	op := s.begin(ctx, models.QueryTypeBoreholeFilter)
	ctx = op.ctx

	criteria := req.Criteria
	criteria.OmitGeometry = criteria.OmitGeometry || s.settings.OmitGeometry

	// Criteria errors must surface before any request leaves, discovery included.
	node, err := s.translator.Translate(criteria)
	if err != nil {
		return nil, op.fail(err)
	}

	if req.OnlyHylogger {
		discovered, err := s.DiscoverHyloggerBoreholeIDs(ctx, req.ServiceURL)
		if err != nil {
			return nil, op.fail(err)
		}
		if discovered.AllFailed() {
			return nil, op.fail(fmt.Errorf("%w: %d endpoints", ErrDiscoveryFailed, discovered.Queried))
		}
		if len(discovered.Identifiers) == 0 {
			return nil, op.fail(ErrNoHyloggerBoreholes)
		}
		criteria.RestrictToIDs = discovered.Identifiers
		if node, err = s.translator.Translate(criteria); err != nil {
			return nil, op.fail(err)
		}
	}

	endpoints, err := s.catalog.Endpoints(ctx, catalog.Filter{
		ResourceType: models.ResourceTypeWFS,
		TypeName:     s.settings.BoreholeTypeName,
		Host:         req.ServiceURL,
	})
	if err != nil {
		return nil, op.fail(err)
	}

	results := s.dispatcher.Dispatch(ctx, endpoints, dispatch.Template{
		TypeName:     s.settings.BoreholeTypeName,
		Fragment:     filter.Render(node),
		MaxFeatures:  s.maxFeatures(req.MaxFeatures),
		OutputFormat: req.OutputFormat,
	})

	var agg *models.AggregatedResult
	if req.OutputFormat == csvOutputFormat {
		agg = aggregate.Concatenate(results)
	} else {
		agg = aggregate.Collect(results)
	}
	return op.done(agg), nil
}

// DiscoverHyloggerBoreholeIDs lists the boreholes that carry scanned
// (hylogger) data by querying every scanned-borehole endpoint on the host of
// serviceURL, or on every host when it is empty.
func (s *Service) DiscoverHyloggerBoreholeIDs(ctx context.Context, serviceURL string) (*models.AggregatedResult, error) {
	op := s.begin(ctx, models.QueryTypeHyloggerDiscovery)

	endpoints, err := s.catalog.Endpoints(op.ctx, catalog.Filter{
		ResourceType: models.ResourceTypeWFS,
		TypeName:     s.settings.ScannedBoreholeTypeName,
		Host:         serviceURL,
	})
	if err != nil {
		return nil, op.fail(err)
	}

	results := s.dispatcher.Dispatch(op.ctx, endpoints, dispatch.Template{
		TypeName: s.settings.ScannedBoreholeTypeName,
	})
	return op.done(aggregate.ExtractIdentifiers(results, aggregate.ScannedBoreholeExtractor, op.log)), nil
}

// DownloadCSV requests CSV output from each service URL and concatenates the
// non-empty responses.
func (s *Service) DownloadCSV(ctx context.Context, req CSVRequest) (*models.AggregatedResult, error) {
	return s.downloadCSV(ctx, models.QueryTypeCSVExport, req)
}

// TSGDownloadAvailable reports whether a TSG file cache is configured.
func (s *Service) TSGDownloadAvailable() TSGAvailability {
	if len(s.settings.TSGCacheURL) > 1 {
		return TSGAvailability{Available: true, URL: s.settings.TSGCacheURL, Message: s.settings.TSGServiceMessage}
	}
	return TSGAvailability{URL: s.settings.TSGCacheURL, Message: "TSG files download is not ready."}
}

// DownloadTSGCSV is DownloadCSV gated on TSG availability.
func (s *Service) DownloadTSGCSV(ctx context.Context, req CSVRequest) (*models.AggregatedResult, error) {
	if avail := s.TSGDownloadAvailable(); !avail.Available {
		return nil, fmt.Errorf("%w: %s", ErrTSGUnavailable, avail.Message)
	}
	return s.downloadCSV(ctx, models.QueryTypeTSGExport, req)
}

func (s *Service) downloadCSV(ctx context.Context, qt models.QueryType, req CSVRequest) (*models.AggregatedResult, error) {
	op := s.begin(ctx, qt)

	criteria := req.Criteria
	criteria.OmitGeometry = criteria.OmitGeometry || s.settings.OmitGeometry

	node, err := s.translator.Translate(criteria)
	if err != nil {
		return nil, op.fail(err)
	}

	endpoints := make([]models.Endpoint, 0, len(req.ServiceURLs))
	for _, u := range req.ServiceURLs {
		if u == "" {
			continue
		}
		endpoints = append(endpoints, models.Endpoint{URL: u, ResourceType: models.ResourceTypeWFS})
	}

	results := s.dispatcher.Dispatch(op.ctx, endpoints, dispatch.Template{
		TypeName:     s.settings.BoreholeTypeName,
		Fragment:     filter.Render(node),
		MaxFeatures:  s.maxFeatures(req.MaxFeatures),
		OutputFormat: csvOutputFormat,
	})
	return op.done(aggregate.Concatenate(results)), nil
}

func (s *Service) maxFeatures(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.settings.DefaultMaxFeatures
}

// operation tracks one aggregate operation for logs, metrics and tracing.
type operation struct {
	s         *Service
	ctx       context.Context
	queryType models.QueryType
	log       logger.Logger
	start     time.Time
	end       func(err error)
}

func (s *Service) begin(ctx context.Context, qt models.QueryType) *operation {
	runID := uuid.NewString()
	ctx, span := s.obs.StartSpan(ctx, string(qt), attribute.String("runId", runID))

	return &operation{
		s:         s,
		ctx:       ctx,
		queryType: qt,
		log:       s.logger.WithFields(map[string]interface{}{logger.FieldRunID: runID, "queryType": string(qt)}),
		start:     time.Now(),
		end: func(err error) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		},
	}
}

func (op *operation) done(agg *models.AggregatedResult) *models.AggregatedResult {
	elapsed := time.Since(op.start)

	metrics.AggregateOutcomes.WithLabelValues(string(op.queryType), string(agg.Status)).Inc()
	op.s.obs.RecordOperation(op.ctx, string(op.queryType), string(agg.Status), agg.Failed, elapsed)

	op.log.Info("aggregate operation finished", map[string]interface{}{
		"status":               string(agg.Status),
		"queried":              agg.Queried,
		"failed":               agg.Failed,
		"identifiers":          len(agg.Identifiers),
		"payloadBytes":         len(agg.Payload),
		logger.FieldDurationMS: elapsed.Milliseconds(),
	})
	op.end(nil)
	return agg
}

func (op *operation) fail(err error) error {
	const statusError = "ERROR"

	metrics.AggregateOutcomes.WithLabelValues(string(op.queryType), statusError).Inc()
	op.s.obs.RecordOperation(op.ctx, string(op.queryType), statusError, 0, time.Since(op.start))

	op.log.Error("aggregate operation failed", map[string]interface{}{
		"error":                err.Error(),
		logger.FieldDurationMS: time.Since(op.start).Milliseconds(),
	})
	op.end(err)
	return err
}
