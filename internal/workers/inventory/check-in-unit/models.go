// internal/workers/inventory/check-in-unit/models.go
package checkinunit

import "clinic-inventory-workers/internal/models"

type Input struct {
	ClinicID          string           `json:"clinicId"`
	UserID            string           `json:"userId"`
	DrugID            string           `json:"drugId,omitempty"`
	Drug              *models.DrugData `json:"drug,omitempty"`
	TotalQuantity     int              `json:"totalQuantity"`
	AvailableQuantity *int             `json:"availableQuantity,omitempty"`
	LotID             string           `json:"lotId,omitempty"`
	ExpiryDate        string           `json:"expiryDate"`
	OptionalNotes     string           `json:"optionalNotes,omitempty"`
}

type Output struct {
	UnitID            string `json:"unitId"`
	DrugID            string `json:"drugId"`
	TransactionID     string `json:"transactionId"`
	DrugCreated       bool   `json:"drugCreated"`
	AvailableQuantity int    `json:"availableQuantity"`
	ExpiryDate        string `json:"expiryDate"`
	CheckedInAt       string `json:"checkedInAt"`
}
