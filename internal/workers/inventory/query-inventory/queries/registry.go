// internal/workers/inventory/query-inventory/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// Params carries every input a query may need; each query reads its own subset.
type Params struct {
	ClinicID      string
	SearchQuery   smartsearch.SearchQuery
	UnitID        string
	TransactionID string
	NDC           string
	Search        string
	Page          Page
	Now           time.Time
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

type Result struct {
	Data     interface{}
	RowCount int
	Total    *int
}

type QueryFunc func(ctx context.Context, db *sql.DB, p Params) (*Result, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeInventorySearch:  InventorySearch,
	models.QueryTypeUnitDetails:      UnitDetails,
	models.QueryTypeTransactionsList: TransactionsList,
	models.QueryTypeDrugSearch:       DrugSearch,
	models.QueryTypeDrugByNDC:        DrugByNDC,

	models.QueryTypeDashboardStats:     DashboardStats,
	models.QueryTypeUnitLookup:         UnitLookup,
	models.QueryTypeTransactionDetails: TransactionDetails,
}

// Execute runs queryType and returns its result with the execution time in ms.
func Execute(ctx context.Context, db *sql.DB, queryType models.QueryType, p Params) (*Result, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}

	start := time.Now()
	res, err := fn(ctx, db, p)
	return res, time.Since(start).Milliseconds(), err
}

func intPtr(v int) *int { return &v }
