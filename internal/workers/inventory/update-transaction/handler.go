// internal/workers/inventory/update-transaction/handler.go
package updatetransaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/workers/inventory/query-inventory/queries"
)

const TaskType = "update-transaction"

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		sets    []string
		args    []interface{}
		updated []string
	)
	if input.Quantity != nil {
		args = append(args, *input.Quantity)
		sets = append(sets, fmt.Sprintf("quantity = $%d", len(args)))
		updated = append(updated, "quantity")
	}
	if input.Notes != nil {
		args = append(args, nullIfEmpty(*input.Notes))
		sets = append(sets, fmt.Sprintf("notes = $%d", len(args)))
		updated = append(updated, "notes")
	}
	args = append(args, input.TransactionID, input.ClinicID)

	row := h.db.QueryRowContext(ctx,
		fmt.Sprintf("UPDATE transactions t SET %s WHERE t.transaction_id = $%d AND t.clinic_id = $%d RETURNING %s",
			strings.Join(sets, ", "), len(args)-1, len(args), queries.TransactionColumns),
		args...)

	tx, err := queries.ScanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewTransactionNotFoundError(input.TransactionID)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError(TaskType)
		}
		return nil, apperrors.NewQueryExecutionFailedError(TaskType, err)
	}

	h.logger.Info("transaction updated", map[string]interface{}{
		"transactionId": input.TransactionID,
		"clinicId":      input.ClinicID,
		"fields":        updated,
	})
	return &Output{Transaction: tx, UpdatedFields: updated}, nil
}

func validateInput(input *Input) error {
	if input == nil {
		return apperrors.NewInvalidInputError("input cannot be nil")
	}

	var missing []string
	if input.TransactionID == "" {
		missing = append(missing, "transactionId")
	}
	if input.ClinicID == "" {
		missing = append(missing, "clinicId")
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidInputError("missing " + strings.Join(missing, ", "))
	}

	if input.Quantity == nil && input.Notes == nil {
		return apperrors.NewInvalidInputError("no fields to update")
	}
	if input.Quantity != nil && *input.Quantity <= 0 {
		return apperrors.NewInvalidInputError("quantity must be positive")
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
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
