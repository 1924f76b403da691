// internal/models/unit.go
package models

type Unit struct {
	UnitID             string `json:"unitId"`
	TotalQuantity      int    `json:"totalQuantity"`
	AvailableQuantity  int    `json:"availableQuantity"`
	PatientReferenceID string `json:"patientReferenceId,omitempty"`
	LotID              string `json:"lotId,omitempty"`
	ExpiryDate         string `json:"expiryDate"`
	DateCreated        string `json:"dateCreated"`
	UserID             string `json:"userId"`
	DrugID             string `json:"drugId"`
	OptionalNotes      string `json:"optionalNotes,omitempty"`
	ClinicID           string `json:"clinicId"`
	Drug               *Drug  `json:"drug,omitempty"`
}

type TransactionType string

const (
	TransactionCheckIn  TransactionType = "check in"
	TransactionCheckOut TransactionType = "check out"
)

type Transaction struct {
	TransactionID      string          `json:"transactionId"`
	Timestamp          string          `json:"timestamp"`
	Type               TransactionType `json:"type"`
	Quantity           int             `json:"quantity"`
	UnitID             string          `json:"unitId"`
	PatientReferenceID string          `json:"patientReferenceId,omitempty"`
	UserID             string          `json:"userId"`
	Notes              string          `json:"notes,omitempty"`
	ClinicID           string          `json:"clinicId"`
}

// DashboardStats summarizes a clinic's stock for the inventory dashboard.
// Unit counts cover units with stock left.
type DashboardStats struct {
	TotalUnits        int `json:"totalUnits"`
	UnitsExpiringSoon int `json:"unitsExpiringSoon"`
	RecentCheckIns    int `json:"recentCheckIns"`
	RecentCheckOuts   int `json:"recentCheckOuts"`
	LowStockAlerts    int `json:"lowStockAlerts"`
}
