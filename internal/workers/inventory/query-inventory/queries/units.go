// internal/workers/inventory/query-inventory/queries/units.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "clinic-inventory-workers/internal/common/errors"
)

func UnitDetails(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	if p.UnitID == "" || p.ClinicID == "" {
		return nil, fmt.Errorf("%w: unitId and clinicId", ErrMissingParam)
	}

	row := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s %s WHERE u.unit_id = $1 AND u.clinic_id = $2", unitColumns, unitsFrom),
		p.UnitID, p.ClinicID)

	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewUnitNotFoundError(p.UnitID)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Data: unit, RowCount: 1}, nil
}

const unitLookupLimit = 10

// UnitLookup is the quick unit finder: a partial unit ID or generic name,
// at most 10 units, soonest expiry first.
func UnitLookup(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	search := strings.TrimSpace(p.Search)
	if search == "" || p.ClinicID == "" {
		return nil, fmt.Errorf("%w: search and clinicId", ErrMissingParam)
	}

	b := &whereBuilder{}
	b.add("u.clinic_id = " + b.arg(p.ClinicID))
	s := b.arg(containsPattern(search))
	b.add(fmt.Sprintf("(u.unit_id ILIKE %s OR d.generic_name ILIKE %s)", s, s))

	units, err := QueryUnits(ctx, db, Statement{
		Text: fmt.Sprintf("SELECT %s %s %s ORDER BY u.expiry_date ASC, u.unit_id ASC LIMIT %d",
			unitColumns, unitsFrom, b.String(), unitLookupLimit),
		Args: b.args,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Data: units, RowCount: len(units)}, nil
}
