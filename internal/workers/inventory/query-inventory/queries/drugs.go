// internal/workers/inventory/query-inventory/queries/drugs.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
)

const (
	drugSearchLimit   = 10
	drugCatalogLimit  = 20
	minDrugQueryChars = 2
)

const drugColumns = `d.drug_id, d.medication_name, d.generic_name, d.strength, d.strength_unit, d.ndc_id, d.form`

// DrugSearch matches drugs by name or NDC. The clinic's in-stock drugs come
// first, then the shared catalog; results are unique by NDC.
func DrugSearch(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	query := strings.TrimSpace(p.Search)
	if len([]rune(query)) < minDrugQueryChars {
		return &Result{Data: []models.DrugSearchResult{}}, nil
	}
	if p.ClinicID == "" {
		return nil, fmt.Errorf("%w: clinicId", ErrMissingParam)
	}

	digits := smartsearch.NormalizeNDC(query)
	seen := make(map[string]bool)
	results := []models.DrugSearchResult{}

	collect := func(drugs []models.Drug, inInventory bool) {
		for _, d := range drugs {
			if seen[d.NDCID] {
				continue
			}
			seen[d.NDCID] = true
			results = append(results, models.DrugSearchResult{Drug: d, InInventory: inInventory})
		}
	}

	b := &whereBuilder{}
	b.add("u.clinic_id = " + b.arg(p.ClinicID))
	b.add("u.available_quantity > 0")
	name := b.arg(containsPattern(query))
	match := fmt.Sprintf("d.medication_name ILIKE %s OR d.generic_name ILIKE %s", name, name)
	if digits != "" {
		match += fmt.Sprintf(" OR %s LIKE %s", ndcDigits, b.arg("%"+digits+"%"))
	}
	b.add("(" + match + ")")

	stocked, err := queryDrugs(ctx, db,
		fmt.Sprintf("SELECT DISTINCT %s %s %s ORDER BY d.medication_name", drugColumns, unitsFrom, b.String()),
		b.args...)
	if err != nil {
		return nil, err
	}
	collect(stocked, true)

	ndcTerm := digits
	if ndcTerm == "" {
		ndcTerm = query
	}
	catalog, err := queryDrugs(ctx, db,
		fmt.Sprintf(`SELECT %s FROM drugs d
			WHERE d.ndc_id ILIKE $1 OR d.medication_name ILIKE $2 OR d.generic_name ILIKE $2
			LIMIT %d`, drugColumns, drugCatalogLimit),
		containsPattern(ndcTerm), containsPattern(query))
	if err != nil {
		return nil, err
	}
	collect(catalog, false)

	if len(results) > drugSearchLimit {
		results = results[:drugSearchLimit]
	}
	return &Result{Data: results, RowCount: len(results)}, nil
}

// DrugByNDC resolves a scanned NDC, preferring the clinic's own stock.
func DrugByNDC(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	digits := smartsearch.NormalizeNDC(p.NDC)
	if digits == "" {
		return nil, fmt.Errorf("%w: ndc", ErrMissingParam)
	}

	if p.ClinicID != "" {
		d, err := queryOneDrug(ctx, db,
			fmt.Sprintf("SELECT %s %s WHERE u.clinic_id = $1 AND u.available_quantity > 0 AND %s = $2 LIMIT 1",
				drugColumns, unitsFrom, ndcDigits),
			p.ClinicID, digits)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return &Result{Data: &models.DrugSearchResult{Drug: *d, InInventory: true}, RowCount: 1}, nil
		}
	}

	d, err := queryOneDrug(ctx, db,
		fmt.Sprintf("SELECT %s FROM drugs d WHERE %s = $1 LIMIT 1", drugColumns, ndcDigits),
		digits)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &Result{Data: nil, RowCount: 0}, nil
	}
	return &Result{Data: &models.DrugSearchResult{Drug: *d}, RowCount: 1}, nil
}

func queryDrugs(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]models.Drug, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drugs []models.Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		drugs = append(drugs, *d)
	}
	return drugs, rows.Err()
}

func queryOneDrug(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*models.Drug, error) {
	d, err := scanDrug(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func scanDrug(row RowScanner) (*models.Drug, error) {
	var d models.Drug
	if err := row.Scan(&d.DrugID, &d.MedicationName, &d.GenericName, &d.Strength, &d.StrengthUnit, &d.NDCID, &d.Form); err != nil {
		return nil, err
	}
	return &d, nil
}
