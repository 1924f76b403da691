// internal/workers/inventory/query-inventory/models.go
package queryinventory

import (
	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
)

type Input struct {
	QueryType     string                   `json:"queryType"`
	ClinicID      string                   `json:"clinicId"`
	Query         string                   `json:"query,omitempty"`
	SearchQuery   *smartsearch.SearchQuery `json:"searchQuery,omitempty"`
	UnitID        string                   `json:"unitId,omitempty"`
	TransactionID string                   `json:"transactionId,omitempty"`
	NDC           string                   `json:"ndc,omitempty"`
	Search        string                   `json:"search,omitempty"`
	Page          int                      `json:"page,omitempty"`
	PageSize      int                      `json:"pageSize,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	Total              *int        `json:"total,omitempty"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
	Cached             bool        `json:"cached"`
}

type QueryType = models.QueryType

var (
	QueryTypeInventorySearch  = models.QueryTypeInventorySearch
	QueryTypeUnitDetails      = models.QueryTypeUnitDetails
	QueryTypeTransactionsList = models.QueryTypeTransactionsList
	QueryTypeDrugSearch       = models.QueryTypeDrugSearch
	QueryTypeDrugByNDC        = models.QueryTypeDrugByNDC

	QueryTypeDashboardStats     = models.QueryTypeDashboardStats
	QueryTypeUnitLookup         = models.QueryTypeUnitLookup
	QueryTypeTransactionDetails = models.QueryTypeTransactionDetails
)

// cachedSearch is what inventory_search stores in Redis.
type cachedSearch struct {
	Units []models.Unit `json:"units"`
	Total int           `json:"total"`
}
