// internal/workers/notifications/send-expiry-alert/handler.go
package sendexpiryalert

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

	awsclients "clinic-inventory-workers/internal/common/aws"
	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
	"clinic-inventory-workers/internal/workers/inventory/query-inventory/queries"
)

const (
	TaskType = "send-expiry-alert"

	defaultWindow = smartsearch.ExpirationWithin30Days
)

type Handler struct {
	config       *Config
	db           *sql.DB
	ses          awsclients.SESAPI
	sns          awsclients.SNSAPI
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// NewHandler wires the worker. ses and sns may be nil when the matching
// channel is disabled.
func NewHandler(config *Config, db *sql.DB, ses awsclients.SESAPI, sns awsclients.SNSAPI, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		ses:          ses,
		sns:          sns,
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
	if input.ClinicID == "" {
		return nil, apperrors.NewInvalidInputError("missing clinicId")
	}
	if input.ExpirationWindow != "" && !input.ExpirationWindow.Valid() {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("unknown expirationWindow %q", input.ExpirationWindow))
	}

	sq := smartsearch.Parse(input.Query)
	window := input.ExpirationWindow
	if window == "" {
		window = sq.Filters.ExpirationWindow
	}
	if window == "" {
		window = defaultWindow
	}

	now := h.now()
	expiring, expired, err := h.findUnits(ctx, input.ClinicID, sq, window, now)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError(TaskType)
		}
		return nil, apperrors.NewQueryExecutionFailedError(TaskType, err)
	}

	output := &Output{
		ExpiryAlert: models.ExpiryAlert{
			AlertID:   uuid.New().String(),
			ClinicID:  input.ClinicID,
			Window:    string(window),
			UnitCount: len(expiring) + len(expired),
		},
		ExpiredCount: len(expired),
	}

	emailReady := h.config.EmailEnabled && h.ses != nil && input.RecipientEmail != ""
	smsReady := h.config.SMSEnabled && h.sns != nil && input.RecipientPhone != "" && len(expired) > 0

	switch {
	case output.UnitCount == 0:
		output.Status = models.AlertStatusNoUnits
	case !emailReady && !smsReady:
		output.Status = models.AlertStatusDisabled
	default:
		h.deliver(ctx, input, window, expiring, expired, emailReady, smsReady, output)
		if output.EmailSent || output.SMSSent {
			output.Status = models.AlertStatusSent
			output.SentAt = now.UTC().Format(time.RFC3339)
		} else {
			output.Status = models.AlertStatusFailed
		}
	}

	h.logger.Info("expiry alert processed", map[string]interface{}{
		"alertId":   output.AlertID,
		"clinicId":  input.ClinicID,
		"window":    window,
		"unitCount": output.UnitCount,
		"expired":   output.ExpiredCount,
		"status":    output.Status,
	})
	return output, nil
}

// findUnits lists units with stock left that expire inside window and,
// unless window already selects them, units that have expired.
func (h *Handler) findUnits(ctx context.Context, clinicID string, sq smartsearch.SearchQuery, window smartsearch.ExpirationWindow, now time.Time) (expiring, expired []models.Unit, err error) {
	page := queries.Page{Number: 1, Size: h.config.MaxUnits}
	opts := queries.SearchOptions{InStockOnly: true}

	windowQuery := sq
	windowQuery.Filters.ExpirationWindow = window
	list, _ := queries.BuildInventorySearch(clinicID, windowQuery, page, now, opts)
	units, err := queries.QueryUnits(ctx, h.db, list)
	if err != nil {
		return nil, nil, err
	}

	if window == smartsearch.ExpirationExpired {
		return nil, units, nil
	}
	expiring = units

	expiredQuery := sq
	expiredQuery.Filters.ExpirationWindow = smartsearch.ExpirationExpired
	list, _ = queries.BuildInventorySearch(clinicID, expiredQuery, page, now, opts)
	expired, err = queries.QueryUnits(ctx, h.db, list)
	if err != nil {
		return nil, nil, err
	}
	return expiring, expired, nil
}

// deliver sends the enabled notifications. A failed channel is logged and
// leaves its Sent flag false.
func (h *Handler) deliver(ctx context.Context, input *Input, window smartsearch.ExpirationWindow, expiring, expired []models.Unit, email, sms bool, output *Output) {
	if email {
		id, err := awsclients.SendEmail(ctx, h.ses, awsclients.Email{
			From:     h.config.FromEmail,
			To:       []string{input.RecipientEmail},
			Subject:  emailSubject(len(expiring), len(expired)),
			TextBody: emailBody(window, expiring, expired),
		})
		if err != nil {
			h.logFailure("email", err)
		} else {
			output.EmailSent = true
			output.EmailMessageID = id
			metrics.NotificationsSent.WithLabelValues("email").Inc()
		}
	}

	if sms {
		id, err := awsclients.SendSMS(ctx, h.sns, input.RecipientPhone, smsMessage(len(expired)), h.config.SenderID)
		if err != nil {
			h.logFailure("sms", err)
		} else {
			output.SMSSent = true
			output.SMSMessageID = id
			metrics.NotificationsSent.WithLabelValues("sms").Inc()
		}
	}
}

func (h *Handler) logFailure(channel string, err error) {
	stdErr := apperrors.NewNotificationSendFailedError(channel, err)
	h.logger.Error("notification failed", map[string]interface{}{
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
	})
}

func emailSubject(expiring, expired int) string {
	if expired > 0 {
		return fmt.Sprintf("Inventory alert: %d expired, %d expiring soon", expired, expiring)
	}
	return fmt.Sprintf("Inventory alert: %d units expiring soon", expiring)
}

func emailBody(window smartsearch.ExpirationWindow, expiring, expired []models.Unit) string {
	var b strings.Builder
	if len(expired) > 0 {
		fmt.Fprintf(&b, "Expired (%d):\n", len(expired))
		writeUnits(&b, expired)
		b.WriteString("\n")
	}
	if len(expiring) > 0 {
		fmt.Fprintf(&b, "Expiring within %d days (%d):\n", window.Days(), len(expiring))
		writeUnits(&b, expiring)
	}
	return b.String()
}

func writeUnits(b *strings.Builder, units []models.Unit) {
	for _, u := range units {
		name, ndc := u.DrugID, ""
		if u.Drug != nil {
			name, ndc = u.Drug.MedicationName, u.Drug.NDCID
		}
		fmt.Fprintf(b, "- %s", name)
		if ndc != "" {
			fmt.Fprintf(b, " (NDC %s)", ndc)
		}
		if u.LotID != "" {
			fmt.Fprintf(b, ", lot %s", u.LotID)
		}
		fmt.Fprintf(b, ", %d available, expires %s\n", u.AvailableQuantity, u.ExpiryDate)
	}
}

func smsMessage(expired int) string {
	return fmt.Sprintf("Clinic inventory: %d medication unit(s) have expired and are still in stock. See the alert email for details.", expired)
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
