// internal/workers/inventory/check-out-unit/handler.go
package checkoutunit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"clinic-inventory-workers/internal/common/database"
	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/models"
)

const TaskType = "check-out-unit"

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := h.now().UTC()
	output := &Output{
		UnitID:            input.UnitID,
		TransactionID:     uuid.New().String(),
		QuantityDispensed: input.Quantity,
		CheckedOutAt:      now.Format(time.RFC3339),
	}

	err := database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		var available int
		err := tx.QueryRowContext(ctx, `
			SELECT available_quantity FROM units
			WHERE unit_id = $1 AND clinic_id = $2
			FOR UPDATE`,
			input.UnitID, input.ClinicID,
		).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewUnitNotFoundError(input.UnitID)
		}
		if err != nil {
			return apperrors.NewQueryExecutionFailedError(TaskType, err)
		}

		if input.Quantity > available {
			return apperrors.NewInsufficientQuantityError(available, input.Quantity)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE units SET available_quantity = available_quantity - $1
			WHERE unit_id = $2 AND clinic_id = $3`,
			input.Quantity, input.UnitID, input.ClinicID,
		); err != nil {
			return apperrors.NewQueryExecutionFailedError(TaskType, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (transaction_id, timestamp, type, quantity, unit_id,
			                          patient_reference_id, user_id, notes, clinic_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			output.TransactionID, now, string(models.TransactionCheckOut), input.Quantity, input.UnitID,
			nullIfEmpty(input.PatientReferenceID), input.UserID, nullIfEmpty(input.Notes), input.ClinicID,
		); err != nil {
			return apperrors.NewDatabaseInsertFailedError(err)
		}

		output.RemainingQuantity = available - input.Quantity
		return nil
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError(TaskType)
		}
		if apperrors.Code(err) == "" {
			return nil, apperrors.NewDatabaseConnectionFailedError(err)
		}
		return nil, err
	}

	h.logger.Info("unit checked out", map[string]interface{}{
		"unitId":    input.UnitID,
		"clinicId":  input.ClinicID,
		"quantity":  input.Quantity,
		"remaining": output.RemainingQuantity,
	})
	return output, nil
}

func validateInput(input *Input) error {
	if input == nil {
		return apperrors.NewInvalidInputError("input cannot be nil")
	}

	var missing []string
	if input.UnitID == "" {
		missing = append(missing, "unitId")
	}
	if input.ClinicID == "" {
		missing = append(missing, "clinicId")
	}
	if input.UserID == "" {
		missing = append(missing, "userId")
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidInputError("missing " + strings.Join(missing, ", "))
	}
	if input.Quantity <= 0 {
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
