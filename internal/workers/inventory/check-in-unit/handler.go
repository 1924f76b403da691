// internal/workers/inventory/check-in-unit/handler.go
package checkinunit

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

const (
	TaskType = "check-in-unit"

	checkInNote = "Initial check-in"
)

var expiryLayouts = []string{"2006-01-02", time.RFC3339}

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
	expiry, available, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	now := h.now().UTC()
	output := &Output{
		UnitID:            uuid.New().String(),
		TransactionID:     uuid.New().String(),
		AvailableQuantity: available,
		ExpiryDate:        expiry.Format("2006-01-02"),
		CheckedInAt:       now.Format(time.RFC3339),
	}

	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		drugID, created, err := h.resolveDrug(ctx, tx, input, now)
		if err != nil {
			return err
		}
		output.DrugID = drugID
		output.DrugCreated = created

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO units (unit_id, total_quantity, available_quantity, lot_id, expiry_date,
			                   date_created, user_id, drug_id, optional_notes, clinic_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			output.UnitID, input.TotalQuantity, available, nullIfEmpty(input.LotID), expiry,
			now, input.UserID, drugID, nullIfEmpty(input.OptionalNotes), input.ClinicID,
		); err != nil {
			return apperrors.NewDatabaseInsertFailedError(err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (transaction_id, timestamp, type, quantity, unit_id, user_id, notes, clinic_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			output.TransactionID, now, string(models.TransactionCheckIn), input.TotalQuantity,
			output.UnitID, input.UserID, checkInNote, input.ClinicID,
		); err != nil {
			return apperrors.NewDatabaseInsertFailedError(err)
		}
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

	h.logger.Info("unit checked in", map[string]interface{}{
		"unitId":      output.UnitID,
		"drugId":      output.DrugID,
		"drugCreated": output.DrugCreated,
		"clinicId":    input.ClinicID,
		"quantity":    input.TotalQuantity,
	})
	return output, nil
}

func validateInput(input *Input) (time.Time, int, error) {
	if input == nil {
		return time.Time{}, 0, apperrors.NewInvalidInputError("input cannot be nil")
	}

	var missing []string
	if input.ClinicID == "" {
		missing = append(missing, "clinicId")
	}
	if input.UserID == "" {
		missing = append(missing, "userId")
	}
	if input.ExpiryDate == "" {
		missing = append(missing, "expiryDate")
	}
	if len(missing) > 0 {
		return time.Time{}, 0, apperrors.NewInvalidInputError("missing " + strings.Join(missing, ", "))
	}

	if input.DrugID == "" && input.Drug == nil {
		return time.Time{}, 0, apperrors.NewInvalidInputError("either drugId or drug must be provided")
	}
	if input.TotalQuantity <= 0 {
		return time.Time{}, 0, apperrors.NewInvalidInputError("totalQuantity must be positive")
	}

	available := input.TotalQuantity
	if input.AvailableQuantity != nil {
		available = *input.AvailableQuantity
	}
	if available < 0 || available > input.TotalQuantity {
		return time.Time{}, 0, apperrors.NewInvalidInputError(
			fmt.Sprintf("availableQuantity %d must be between 0 and totalQuantity %d", available, input.TotalQuantity))
	}

	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, input.ExpiryDate); err == nil {
			return t, available, nil
		}
	}
	return time.Time{}, 0, apperrors.NewInvalidInputError(fmt.Sprintf("invalid expiryDate %q", input.ExpiryDate))
}

// resolveDrug returns the drug to attach the unit to: the given id, an
// existing drug with the same NDC, an existing drug with the same generic
// name, strength and form, or a newly inserted one.
func (h *Handler) resolveDrug(ctx context.Context, tx *sql.Tx, input *Input, now time.Time) (string, bool, error) {
	if input.DrugID != "" {
		return input.DrugID, false, nil
	}
	d := input.Drug

	if d.NDCID != "" {
		id, err := lookupDrug(ctx, tx, `SELECT drug_id FROM drugs WHERE ndc_id = $1 LIMIT 1`, d.NDCID)
		if err != nil || id != "" {
			return id, false, err
		}
	}

	id, err := lookupDrug(ctx, tx, `
		SELECT drug_id FROM drugs
		WHERE generic_name = $1 AND strength = $2 AND strength_unit = $3 AND form = $4
		LIMIT 1`,
		d.GenericName, d.Strength, d.StrengthUnit, d.Form)
	if err != nil || id != "" {
		return id, false, err
	}

	ndc := d.NDCID
	if ndc == "" {
		ndc = fmt.Sprintf("MANUAL-%d", now.UnixMilli())
	}

	id = uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO drugs (drug_id, medication_name, generic_name, strength, strength_unit, ndc_id, form)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, d.MedicationName, d.GenericName, d.Strength, d.StrengthUnit, ndc, d.Form,
	); err != nil {
		return "", false, apperrors.NewDrugResolutionFailedError(err)
	}
	return id, true, nil
}

func lookupDrug(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewDrugResolutionFailedError(err)
	}
	return id, nil
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
