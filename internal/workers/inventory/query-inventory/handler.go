// internal/workers/inventory/query-inventory/handler.go
package queryinventory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"clinic-inventory-workers/internal/common/database"
	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
	"clinic-inventory-workers/internal/workers/inventory/query-inventory/queries"
)

const (
	TaskType = "query-inventory"

	cacheName      = "inventory_search"
	cacheKeyPrefix = "inventory:search:"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        *redis.Client
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// NewHandler builds the handler. rdb may be nil, which disables caching.
func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        rdb,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		now:          time.Now,
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

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, apperrors.NewInvalidQueryTypeError(input.QueryType)
	}

	params := queries.Params{
		ClinicID:      input.ClinicID,
		UnitID:        input.UnitID,
		TransactionID: input.TransactionID,
		NDC:           input.NDC,
		Search:        input.Search,
		Page:          h.page(input),
		Now:           h.now(),
	}

	if queryType == models.QueryTypeInventorySearch {
		if input.SearchQuery != nil {
			params.SearchQuery = *input.SearchQuery
		} else {
			params.SearchQuery = smartsearch.Parse(input.Query)
		}
		if out, ok := h.cachedSearch(ctx, params); ok {
			return out, nil
		}
	}
	if (queryType == models.QueryTypeDrugSearch || queryType == models.QueryTypeUnitLookup) && params.Search == "" {
		params.Search = input.Query
	}

	res, execTime, err := queries.Execute(ctx, h.db, queryType, params)
	if err != nil {
		return nil, h.mapError(ctx, queryType, err)
	}

	output := &Output{
		Data:               res.Data,
		RowCount:           res.RowCount,
		Total:              res.Total,
		QueryExecutionTime: execTime,
	}

	if queryType == models.QueryTypeInventorySearch {
		h.storeSearch(ctx, params, res)
	}

	h.logger.Info("query executed", map[string]interface{}{
		"queryType":          input.QueryType,
		"clinicId":           input.ClinicID,
		"rowCount":           output.RowCount,
		"queryExecutionTime": execTime,
	})
	return output, nil
}

func (h *Handler) page(input *Input) queries.Page {
	p := queries.Page{Number: input.Page, Size: input.PageSize}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = h.config.DefaultPageSize
	}
	if h.config.MaxPageSize > 0 && p.Size > h.config.MaxPageSize {
		p.Size = h.config.MaxPageSize
	}
	return p
}

func (h *Handler) mapError(ctx context.Context, queryType models.QueryType, err error) error {
	var stdErr *apperrors.StandardError
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewQueryTimeoutError(string(queryType))
	case errors.Is(err, queries.ErrMissingParam):
		return apperrors.NewInvalidInputError(err.Error())
	default:
		return apperrors.NewQueryExecutionFailedError(string(queryType), err)
	}
}

// searchCacheKey hashes everything that determines a search result. The day
// is part of the key because expiration windows move with it.
func searchCacheKey(p queries.Params) string {
	raw, _ := json.Marshal(struct {
		ClinicID string                  `json:"c"`
		Query    smartsearch.SearchQuery `json:"q"`
		Page     int                     `json:"p"`
		Size     int                     `json:"s"`
		Day      string                  `json:"d"`
	}{p.ClinicID, p.SearchQuery, p.Page.Number, p.Page.Size, p.Now.Format("2006-01-02")})

	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (h *Handler) cachedSearch(ctx context.Context, p queries.Params) (*Output, bool) {
	if h.redis == nil || p.ClinicID == "" {
		return nil, false
	}

	start := time.Now()
	var cached cachedSearch
	found, err := database.GetJSON(ctx, h.redis, searchCacheKey(p), &cached)
	if err != nil {
		h.logger.Warn("cache read failed", map[string]interface{}{"error": err})
	}
	metrics.RecordCacheLookup(cacheName, found)
	if !found {
		return nil, false
	}

	total := cached.Total
	return &Output{
		Data:               cached.Units,
		RowCount:           len(cached.Units),
		Total:              &total,
		QueryExecutionTime: time.Since(start).Milliseconds(),
		Cached:             true,
	}, true
}

func (h *Handler) storeSearch(ctx context.Context, p queries.Params, res *queries.Result) {
	if h.redis == nil {
		return
	}
	units, _ := res.Data.([]models.Unit)
	entry := cachedSearch{Units: units}
	if res.Total != nil {
		entry.Total = *res.Total
	}
	if err := database.SetJSON(ctx, h.redis, searchCacheKey(p), entry, h.config.CacheTTL); err != nil {
		h.logger.Warn("cache write failed", map[string]interface{}{"error": err})
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
