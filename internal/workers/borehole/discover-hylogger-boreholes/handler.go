package discoverhyloggerboreholes

import (
	"context"
	"fmt"

	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/workers/borehole/shared"
	"borehole-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = registry.TaskDiscoverHyloggerBoreholes

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

// Execute lists the ids of boreholes that have scanned hylogger data.
// Zero ids is a valid result here; only a filter that depends on the ids
// treats it as an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	agg, err := h.service.DiscoverHyloggerBoreholeIDs(ctx, input.ServiceURL)
	if err != nil {
		return nil, shared.MapError(err)
	}
	if err := shared.CheckEmpty(agg); err != nil {
		return nil, err
	}

	ids := agg.Identifiers
	if ids == nil {
		ids = []string{}
	}
	return &Output{AggregateOutput: shared.NewAggregateOutput(agg), BoreholeIDs: ids}, nil
}
