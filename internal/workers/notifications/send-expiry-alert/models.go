// internal/workers/notifications/send-expiry-alert/models.go
package sendexpiryalert

import (
	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
)

type Input struct {
	ClinicID         string                       `json:"clinicId"`
	Query            string                       `json:"query,omitempty"`
	ExpirationWindow smartsearch.ExpirationWindow `json:"expirationWindow,omitempty"`
	RecipientEmail   string                       `json:"recipientEmail,omitempty"`
	RecipientPhone   string                       `json:"recipientPhone,omitempty"`
}

type Output struct {
	models.ExpiryAlert
	ExpiredCount   int    `json:"expiredCount"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	SMSMessageID   string `json:"smsMessageId,omitempty"`
}
