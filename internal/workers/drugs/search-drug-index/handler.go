// internal/workers/drugs/search-drug-index/handler.go
package searchdrugindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/smartsearch"
	"clinic-inventory-workers/internal/workers/drugs/search-drug-index/queries"
)

const TaskType = "search-drug-index"

type Handler struct {
	config       *Config
	client       *elasticsearch.Client
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       client,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := observability.StartJobSpan(ctx, TaskType, job)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = h.config.Validator.Validate(TaskType, job.Variables); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	var input Input
	if err = json.Unmarshal([]byte(job.Variables), &input); err != nil {
		err = apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}

	sq := smartsearch.Parse(input.Query)
	if input.SearchQuery != nil {
		sq = *input.SearchQuery
	}

	ds := queries.DrugSearch{
		Index:       input.IndexName,
		ClinicID:    input.ClinicID,
		SearchQuery: sq,
		From:        input.From,
		Size:        input.Size,
	}
	if ds.Index == "" {
		ds.Index = h.config.IndexName
	}
	if ds.From < 0 {
		ds.From = 0
	}
	if ds.Size < 1 {
		ds.Size = h.config.DefaultSize
	}
	if ds.Size > h.config.MaxSize {
		ds.Size = h.config.MaxSize
	}

	result, err := queries.Execute(ctx, h.client, ds)
	if err != nil {
		return nil, h.mapError(ctx, ds.Index, err)
	}

	h.logger.Info("drug index searched", map[string]interface{}{
		"index":     ds.Index,
		"totalHits": result.TotalHits,
		"returned":  len(result.Data),
		"filters":   sq.Filters.Dimensions(),
	})

	return &Output{
		Data:      result.Data,
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
		Took:      result.Took,
	}, nil
}

func (h *Handler) mapError(ctx context.Context, index string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewSearchTimeoutError(index)
	case errors.Is(err, queries.ErrMissingIndex), errors.Is(err, queries.ErrIndexNotFound):
		return apperrors.NewIndexNotFoundError(index)
	case errors.Is(err, queries.ErrTransport):
		return apperrors.NewElasticsearchConnectionFailedError(err)
	default:
		return apperrors.NewSearchQueryFailedError(index, err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
