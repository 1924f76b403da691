// internal/workers/inventory/check-out-unit/models.go
package checkoutunit

type Input struct {
	UnitID             string `json:"unitId"`
	ClinicID           string `json:"clinicId"`
	UserID             string `json:"userId"`
	Quantity           int    `json:"quantity"`
	PatientReferenceID string `json:"patientReferenceId,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

type Output struct {
	UnitID            string `json:"unitId"`
	TransactionID     string `json:"transactionId"`
	QuantityDispensed int    `json:"quantityDispensed"`
	RemainingQuantity int    `json:"remainingQuantity"`
	CheckedOutAt      string `json:"checkedOutAt"`
}
