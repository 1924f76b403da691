// internal/workers/inventory/update-transaction/models.go
package updatetransaction

import "clinic-inventory-workers/internal/models"

// Input corrects a logged transaction. Unit quantities are left as they are.
type Input struct {
	TransactionID string  `json:"transactionId"`
	ClinicID      string  `json:"clinicId"`
	Quantity      *int    `json:"quantity,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type Output struct {
	Transaction   *models.Transaction `json:"transaction"`
	UpdatedFields []string            `json:"updatedFields"`
}
