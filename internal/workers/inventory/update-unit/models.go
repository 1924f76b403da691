// internal/workers/inventory/update-unit/models.go
package updateunit

// Input carries the fields to change; nil fields keep their stored value.
type Input struct {
	UnitID            string  `json:"unitId"`
	ClinicID          string  `json:"clinicId"`
	TotalQuantity     *int    `json:"totalQuantity,omitempty"`
	AvailableQuantity *int    `json:"availableQuantity,omitempty"`
	ExpiryDate        *string `json:"expiryDate,omitempty"`
	OptionalNotes     *string `json:"optionalNotes,omitempty"`
}

type Output struct {
	UnitID            string   `json:"unitId"`
	TotalQuantity     int      `json:"totalQuantity"`
	AvailableQuantity int      `json:"availableQuantity"`
	UpdatedFields     []string `json:"updatedFields"`
	UpdatedAt         string   `json:"updatedAt"`
}
