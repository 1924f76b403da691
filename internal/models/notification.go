// internal/models/notification.go
package models

type AlertStatus string

const (
	AlertStatusSent     AlertStatus = "SENT"
	AlertStatusNoUnits  AlertStatus = "NO_UNITS"
	AlertStatusDisabled AlertStatus = "DISABLED"
	AlertStatusFailed   AlertStatus = "FAILED"
)

type ExpiryAlert struct {
	AlertID   string      `json:"alertId"`
	ClinicID  string      `json:"clinicId"`
	Window    string      `json:"expirationWindow"`
	UnitCount int         `json:"unitCount"`
	EmailSent bool        `json:"emailSent"`
	SMSSent   bool        `json:"smsSent"`
	Status    AlertStatus `json:"status"`
	SentAt    string      `json:"sentAt,omitempty"`
}
