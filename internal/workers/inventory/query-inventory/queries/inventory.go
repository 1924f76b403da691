// internal/workers/inventory/query-inventory/queries/inventory.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"
)

const unitColumns = `u.unit_id, u.total_quantity, u.available_quantity, u.patient_reference_id, u.lot_id,
	u.expiry_date, u.date_created, u.user_id, u.optional_notes, u.clinic_id,
	d.drug_id, d.medication_name, d.generic_name, d.strength, d.strength_unit, d.ndc_id, d.form`

const unitsFrom = `FROM units u JOIN drugs d ON d.drug_id = u.drug_id`

// ndcDigits strips everything but digits from an NDC column in SQL, the
// same normalization smartsearch.NormalizeNDC applies to input.
const ndcDigits = `regexp_replace(d.ndc_id, '[^0-9]', '', 'g')`

var sortColumns = map[smartsearch.SortField]string{
	smartsearch.SortByExpiryDate:     "u.expiry_date",
	smartsearch.SortByMedicationName: "d.medication_name",
	smartsearch.SortByQuantity:       "u.available_quantity",
	smartsearch.SortByStrength:       "d.strength",
}

// Statement is a parameterised SQL statement.
type Statement struct {
	Text string
	Args []interface{}
}

type whereBuilder struct {
	conds []string
	args  []interface{}
}

// arg appends v and returns its placeholder.
func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *whereBuilder) String() string {
	return "WHERE " + strings.Join(b.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is an ILIKE pattern matching s anywhere, with LIKE
// metacharacters in s taken literally. Backslash is the default escape.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// SearchOptions narrows an inventory search beyond the parsed query.
type SearchOptions struct {
	// InStockOnly leaves out units with nothing left to dispense.
	InStockOnly bool
}

// BuildInventorySearch translates a parsed query into a clinic-scoped list
// statement and the matching count statement. Expiration bounds are taken
// relative to now.
func BuildInventorySearch(clinicID string, q smartsearch.SearchQuery, page Page, now time.Time, opts SearchOptions) (list, count Statement) {
	b := &whereBuilder{}
	b.add("u.clinic_id = " + b.arg(clinicID))
	if opts.InStockOnly {
		b.add("u.available_quantity > 0")
	}

	f := q.Filters
	if f.MedicationName != "" {
		p := b.arg(containsPattern(f.MedicationName))
		b.add(fmt.Sprintf("(d.medication_name ILIKE %s OR d.generic_name ILIKE %s)", p, p))
	}
	if ndc := smartsearch.NormalizeNDC(f.NDCID); ndc != "" {
		b.add(ndcDigits + " = " + b.arg(ndc))
	}
	if f.MinStrength != nil {
		b.add("d.strength >= " + b.arg(*f.MinStrength))
	}
	if f.MaxStrength != nil {
		b.add("d.strength <= " + b.arg(*f.MaxStrength))
	}
	from, to := f.ExpirationWindow.Bounds(now)
	if from != nil {
		b.add("u.expiry_date >= " + b.arg(*from))
	}
	if to != nil {
		b.add("u.expiry_date < " + b.arg(*to))
	}
	if f.MedicationName == "" {
		for _, term := range q.SearchTerms {
			if smartsearch.IsStopword(term) {
				continue
			}
			p := b.arg(containsPattern(term))
			b.add(fmt.Sprintf("(d.medication_name ILIKE %s OR d.generic_name ILIKE %s OR u.lot_id ILIKE %s OR u.optional_notes ILIKE %s)", p, p, p, p))
		}
	}

	where := b.String()
	count = Statement{
		Text: fmt.Sprintf("SELECT COUNT(*) %s %s", unitsFrom, where),
		Args: append([]interface{}(nil), b.args...),
	}

	limit := b.arg(page.Size)
	offset := b.arg(page.Offset())
	list = Statement{
		Text: fmt.Sprintf("SELECT %s %s %s ORDER BY %s LIMIT %s OFFSET %s",
			unitColumns, unitsFrom, where, orderBy(f), limit, offset),
		Args: b.args,
	}
	return list, count
}

func orderBy(f smartsearch.Filters) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[smartsearch.SortByExpiryDate]
	}
	dir := "ASC"
	if f.SortOrder == smartsearch.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, u.unit_id ASC", col, dir)
}

// InventorySearch lists the clinic's units matching p.SearchQuery.
func InventorySearch(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	if p.ClinicID == "" {
		return nil, fmt.Errorf("%w: clinicId", ErrMissingParam)
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	list, count := BuildInventorySearch(p.ClinicID, p.SearchQuery, p.Page, now, SearchOptions{})

	var total int
	if err := db.QueryRowContext(ctx, count.Text, count.Args...).Scan(&total); err != nil {
		return nil, err
	}

	units, err := QueryUnits(ctx, db, list)
	if err != nil {
		return nil, err
	}
	return &Result{Data: units, RowCount: len(units), Total: intPtr(total)}, nil
}

// QueryUnits runs a statement selecting unitColumns and scans every row.
func QueryUnits(ctx context.Context, db *sql.DB, stmt Statement) ([]models.Unit, error) {
	rows, err := db.QueryContext(ctx, stmt.Text, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []models.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row RowScanner) (*models.Unit, error) {
	var (
		u                        models.Unit
		d                        models.Drug
		patientRef, lotID, notes sql.NullString
		expiryDate, dateCreated  time.Time
	)
	err := row.Scan(
		&u.UnitID, &u.TotalQuantity, &u.AvailableQuantity, &patientRef, &lotID,
		&expiryDate, &dateCreated, &u.UserID, &notes, &u.ClinicID,
		&d.DrugID, &d.MedicationName, &d.GenericName, &d.Strength, &d.StrengthUnit, &d.NDCID, &d.Form,
	)
	if err != nil {
		return nil, err
	}

	u.PatientReferenceID = patientRef.String
	u.LotID = lotID.String
	u.OptionalNotes = notes.String
	u.ExpiryDate = expiryDate.Format("2006-01-02")
	u.DateCreated = dateCreated.UTC().Format(time.RFC3339)
	u.DrugID = d.DrugID
	u.Drug = &d
	return &u, nil
}
