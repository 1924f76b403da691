// internal/workers/inventory/query-inventory/queries/dashboard.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic-inventory-workers/internal/models"
)

const (
	expiringSoonDays   = 30
	recentActivityDays = 7
)

// DashboardStats counts the clinic's in-stock units, those expiring within
// 30 days (expired ones included) and those below 10% of their original
// quantity, plus check-ins and check-outs over the last 7 days.
func DashboardStats(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	if p.ClinicID == "" {
		return nil, fmt.Errorf("%w: clinicId", ErrMissingParam)
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var stats models.DashboardStats
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE expiry_date <= $2),
		       COUNT(*) FILTER (WHERE available_quantity * 10 < total_quantity)
		FROM units
		WHERE clinic_id = $1 AND available_quantity > 0`,
		p.ClinicID, today.AddDate(0, 0, expiringSoonDays),
	).Scan(&stats.TotalUnits, &stats.UnitsExpiringSoon, &stats.LowStockAlerts)
	if err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE type = $3),
		       COUNT(*) FILTER (WHERE type = $4)
		FROM transactions
		WHERE clinic_id = $1 AND timestamp >= $2`,
		p.ClinicID, now.AddDate(0, 0, -recentActivityDays),
		string(models.TransactionCheckIn), string(models.TransactionCheckOut),
	).Scan(&stats.RecentCheckIns, &stats.RecentCheckOuts)
	if err != nil {
		return nil, err
	}

	return &Result{Data: stats, RowCount: 1}, nil
}
