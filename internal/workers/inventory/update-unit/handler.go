// internal/workers/inventory/update-unit/handler.go
package updateunit

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

	"clinic-inventory-workers/internal/common/database"
	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
)

const TaskType = "update-unit"

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

// execute locks the unit, merges the given fields over the stored ones and
// writes them back. The merged quantities must keep available <= total.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	expiry, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	output := &Output{
		UnitID:    input.UnitID,
		UpdatedAt: h.now().UTC().Format(time.RFC3339),
	}

	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		var total, available int
		err := tx.QueryRowContext(ctx, `
			SELECT total_quantity, available_quantity FROM units
			WHERE unit_id = $1 AND clinic_id = $2
			FOR UPDATE`,
			input.UnitID, input.ClinicID,
		).Scan(&total, &available)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewUnitNotFoundError(input.UnitID)
		}
		if err != nil {
			return apperrors.NewQueryExecutionFailedError(TaskType, err)
		}

		if input.TotalQuantity != nil {
			total = *input.TotalQuantity
		}
		if input.AvailableQuantity != nil {
			available = *input.AvailableQuantity
		}
		if available > total {
			return apperrors.NewInvalidInputError(
				fmt.Sprintf("availableQuantity %d exceeds totalQuantity %d", available, total))
		}

		var (
			sets []string
			args []interface{}
		)
		set := func(field, column string, v interface{}) {
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
			output.UpdatedFields = append(output.UpdatedFields, field)
		}
		if input.TotalQuantity != nil {
			set("totalQuantity", "total_quantity", total)
		}
		if input.AvailableQuantity != nil {
			set("availableQuantity", "available_quantity", available)
		}
		if input.ExpiryDate != nil {
			set("expiryDate", "expiry_date", expiry)
		}
		if input.OptionalNotes != nil {
			set("optionalNotes", "optional_notes", nullIfEmpty(*input.OptionalNotes))
		}

		args = append(args, input.UnitID, input.ClinicID)
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE units SET %s WHERE unit_id = $%d AND clinic_id = $%d",
				strings.Join(sets, ", "), len(args)-1, len(args)),
			args...,
		); err != nil {
			return apperrors.NewQueryExecutionFailedError(TaskType, err)
		}

		output.TotalQuantity = total
		output.AvailableQuantity = available
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

	h.logger.Info("unit updated", map[string]interface{}{
		"unitId":   input.UnitID,
		"clinicId": input.ClinicID,
		"fields":   output.UpdatedFields,
	})
	return output, nil
}

// validateInput checks the request and returns the parsed expiry date, if any.
func validateInput(input *Input) (time.Time, error) {
	if input == nil {
		return time.Time{}, apperrors.NewInvalidInputError("input cannot be nil")
	}

	var missing []string
	if input.UnitID == "" {
		missing = append(missing, "unitId")
	}
	if input.ClinicID == "" {
		missing = append(missing, "clinicId")
	}
	if len(missing) > 0 {
		return time.Time{}, apperrors.NewInvalidInputError("missing " + strings.Join(missing, ", "))
	}

	if input.TotalQuantity == nil && input.AvailableQuantity == nil &&
		input.ExpiryDate == nil && input.OptionalNotes == nil {
		return time.Time{}, apperrors.NewInvalidInputError("no fields to update")
	}
	if input.TotalQuantity != nil && *input.TotalQuantity <= 0 {
		return time.Time{}, apperrors.NewInvalidInputError("totalQuantity must be positive")
	}
	if input.AvailableQuantity != nil && *input.AvailableQuantity < 0 {
		return time.Time{}, apperrors.NewInvalidInputError("availableQuantity cannot be negative")
	}

	var expiry time.Time
	if input.ExpiryDate != nil {
		var err error
		expiry, err = time.Parse("2006-01-02", *input.ExpiryDate)
		if err != nil {
			return time.Time{}, apperrors.NewInvalidInputError("expiryDate must be YYYY-MM-DD")
		}
	}
	return expiry, nil
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
