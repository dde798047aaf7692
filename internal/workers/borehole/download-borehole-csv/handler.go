package downloadboreholecsv

import (
	"context"
	"fmt"

	"borehole-workers/internal/borehole"
	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/workers/borehole/shared"
	"borehole-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = registry.TaskDownloadBoreholeCSV

type Handler struct {
	config  *shared.Config
	logger  logger.Logger
	service Service
	runner  *shared.Runner
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *shared.Config
	Service      Service
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = shared.ConfigFor(opts.AppConfig, TaskType)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: service is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:  cfg,
		logger:  log,
		service: opts.Service,
		runner:  shared.NewRunner(TaskType, cfg.Timeout, log),
	}, nil
}

func (h *Handler) Config() *shared.Config {
	return h.config
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, func(ctx context.Context) (interface{}, error) {
		var input Input
		if err := shared.ParseVariables(job, TaskType, &input); err != nil {
			return nil, err
		}
		return h.Execute(ctx, &input)
	})
}

// Execute downloads CSV from every listed service and concatenates the
// non-empty answers. TSG requests are refused up front while the TSG file
// cache is not configured, and otherwise report the cache location.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req := borehole.CSVRequest{
		ServiceURLs: input.ServiceURLs,
		Criteria:    input.ToCriteria(),
		MaxFeatures: input.MaxFeatures,
	}

	download := h.service.DownloadCSV
	var tsg *borehole.TSGAvailability
	if input.TSG {
		avail := h.service.TSGDownloadAvailable()
		if !avail.Available {
			h.logger.Warn("tsg export requested while unavailable", map[string]interface{}{"message": avail.Message})
			return nil, shared.MapError(fmt.Errorf("%w: %s", borehole.ErrTSGUnavailable, avail.Message))
		}
		tsg = &avail
		download = h.service.DownloadTSGCSV
	}

	agg, err := download(ctx, req)
	if err != nil {
		return nil, shared.MapError(err)
	}
	if err := shared.CheckEmpty(agg); err != nil {
		return nil, err
	}
	return &Output{AggregateOutput: shared.NewAggregateOutput(agg), CSV: agg.Payload, TSG: tsg}, nil
}
