package shared

import (
	"context"
	stderrors "errors"

	"borehole-workers/internal/borehole"
	"borehole-workers/internal/catalog"
	"borehole-workers/internal/common/errors"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/filter"
	"borehole-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// AggregateOutput is the job result common to every aggregate worker.
type AggregateOutput struct {
	Status        models.Status `json:"status"`
	EndpointCount int           `json:"endpointCount"`
	FailedCount   int           `json:"failedCount"`
}

func NewAggregateOutput(agg *models.AggregatedResult) AggregateOutput {
	return AggregateOutput{Status: agg.Status, EndpointCount: agg.Queried, FailedCount: agg.Failed}
}

// CheckEmpty turns an aggregate with no eligible endpoint into a
// NO_DATA_AVAILABLE error.
func CheckEmpty(agg *models.AggregatedResult) error {
	if agg.Status == models.StatusEmpty {
		return errors.NewNoDataAvailableError(agg.Queried)
	}
	return nil
}

// MapError classifies a service error for the job error handler.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsStandardError(err); ok {
		return err
	}

	switch {
	case stderrors.Is(err, filter.ErrMalformedDate):
		return errors.NewInvalidFilterCriteriaError(err)
	case stderrors.Is(err, borehole.ErrNoHyloggerBoreholes):
		return errors.NewNoHyloggerBoreholesError(err)
	case stderrors.Is(err, borehole.ErrDiscoveryFailed):
		return errors.NewEndpointQueryFailedError("hylogger discovery", err)
	case stderrors.Is(err, borehole.ErrTSGUnavailable):
		return errors.NewServiceUnavailableError("TSG download service", err)
	case stderrors.Is(err, catalog.ErrInvalidHost):
		return errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, catalog.ErrCatalogUnavailable):
		return errors.NewCatalogUnavailableError(err)
	default:
		return errors.NewInternalError(err)
	}
}

// Complete sends the complete command with output as variables.
func Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			logger.FieldJobKey: job.GetKey(),
			"error":            err.Error(),
		})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to complete job", map[string]interface{}{
			logger.FieldJobKey: job.GetKey(),
			"error":            err.Error(),
		})
		return err
	}
	return nil
}
