package queries

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/models"
	"clinic-inventory-workers/internal/smartsearch"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func unitRowColumns() []string {
	return []string{
		"unit_id", "total_quantity", "available_quantity", "patient_reference_id", "lot_id",
		"expiry_date", "date_created", "user_id", "optional_notes", "clinic_id",
		"drug_id", "medication_name", "generic_name", "strength", "strength_unit", "ndc_id", "form",
	}
}

func addUnitRow(rows *sqlmock.Rows, unitID string, available int) *sqlmock.Rows {
	return rows.AddRow(
		unitID, 100, available, nil, "LOT-1",
		time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC), fixedNow, "user-1", nil, "clinic-1",
		"drug-1", "Lisinopril 10 MG Oral Tablet", "Lisinopril", 10.0, "mg", "0093-7214-01", "Tablet",
	)
}

func drugRowColumns() []string {
	return []string{"drug_id", "medication_name", "generic_name", "strength", "strength_unit", "ndc_id", "form"}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// ==========================
// Builder Tests
// ==========================

func TestBuildInventorySearch_AllFilters(t *testing.T) {
	q := smartsearch.Parse("lisinopril 10mg expiring in 30 days sort by name desc")

	list, count := BuildInventorySearch("clinic-1", q, Page{Number: 2, Size: 25}, fixedNow, SearchOptions{})

	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	wantFilterArgs := []interface{}{"clinic-1", "%lisinopril%", 10.0, 10.0, today, today.AddDate(0, 0, 31)}

	assert.Equal(t, wantFilterArgs, count.Args)
	assert.Equal(t, append(wantFilterArgs, 25, 25), list.Args)

	assert.Contains(t, count.Text, "SELECT COUNT(*) FROM units u JOIN drugs d")
	assert.Contains(t, list.Text, "u.clinic_id = $1")
	assert.Contains(t, list.Text, "(d.medication_name ILIKE $2 OR d.generic_name ILIKE $2)")
	assert.Contains(t, list.Text, "d.strength >= $3")
	assert.Contains(t, list.Text, "d.strength <= $4")
	assert.Contains(t, list.Text, "u.expiry_date >= $5")
	assert.Contains(t, list.Text, "u.expiry_date < $6")
	assert.Contains(t, list.Text, "ORDER BY d.medication_name DESC, u.unit_id ASC LIMIT $7 OFFSET $8")
	assert.NotContains(t, count.Text, "LIMIT")
}

func TestBuildInventorySearch_Defaults(t *testing.T) {
	list, count := BuildInventorySearch("clinic-1", smartsearch.Parse(""), Page{Number: 1, Size: 50}, fixedNow, SearchOptions{})

	assert.Equal(t, []interface{}{"clinic-1"}, count.Args)
	assert.Equal(t, []interface{}{"clinic-1", 50, 0}, list.Args)
	assert.Contains(t, list.Text, "ORDER BY u.expiry_date ASC, u.unit_id ASC")
}

func TestBuildInventorySearch_Expired(t *testing.T) {
	list, _ := BuildInventorySearch("clinic-1", smartsearch.Parse("expired"), Page{Number: 1, Size: 10}, fixedNow, SearchOptions{})

	assert.Contains(t, list.Text, "u.expiry_date < $2")
	assert.NotContains(t, list.Text, "u.expiry_date >=")
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), list.Args[1])
}

func TestBuildInventorySearch_NDCDigits(t *testing.T) {
	list, _ := BuildInventorySearch("clinic-1", smartsearch.Parse("ndc 0093-7214-01"), Page{Number: 1, Size: 10}, fixedNow, SearchOptions{})

	assert.Contains(t, list.Text, "regexp_replace(d.ndc_id, '[^0-9]', '', 'g') = $2")
	assert.Equal(t, "0093721401", list.Args[1])
}

func TestBuildInventorySearch_ResidualFallback(t *testing.T) {
	q := smartsearch.Parse("stored in fridge")
	require.Empty(t, q.Filters.MedicationName)

	list, _ := BuildInventorySearch("clinic-1", q, Page{Number: 1, Size: 10}, fixedNow, SearchOptions{})

	assert.Equal(t, []interface{}{"clinic-1", "%fridge%", 10, 0}, list.Args)
	assert.Contains(t, list.Text, "u.lot_id ILIKE $2")
}

func TestBuildInventorySearch_InStockOnly(t *testing.T) {
	q := smartsearch.Parse("expired")

	list, count := BuildInventorySearch("clinic-1", q, Page{Number: 1, Size: 10}, fixedNow, SearchOptions{InStockOnly: true})
	assert.Contains(t, list.Text, "WHERE u.clinic_id = $1 AND u.available_quantity > 0 AND u.expiry_date < $2")
	assert.Contains(t, count.Text, "u.available_quantity > 0")
	assert.Equal(t, []interface{}{"clinic-1", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 10, 0}, list.Args)

	list, _ = BuildInventorySearch("clinic-1", q, Page{Number: 1, Size: 10}, fixedNow, SearchOptions{})
	assert.NotContains(t, list.Text, "available_quantity >")
}

func TestBuildInventorySearch_EscapesLikeMetacharacters(t *testing.T) {
	q := smartsearch.Parse("stored in fridge_2 50%")
	require.Empty(t, q.Filters.MedicationName)

	list, _ := BuildInventorySearch("clinic-1", q, Page{Number: 1, Size: 10}, fixedNow, SearchOptions{})

	assert.Equal(t, []interface{}{"clinic-1", `%fridge\_2%`, 10, 0}, list.Args)
}

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"lisinopril", "%lisinopril%"},
		{"50%", `%50\%%`},
		{"lot_1", `%lot\_1%`},
		{`a\b`, `%a\\b%`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsPattern(tt.in), tt.in)
	}
}

func TestBuildInventorySearch_SortOrderWithoutField(t *testing.T) {
	list, _ := BuildInventorySearch("clinic-1", smartsearch.Parse("newest first"), Page{Number: 1, Size: 10}, fixedNow, SearchOptions{})
	assert.Contains(t, list.Text, "ORDER BY u.expiry_date DESC")
}

// ==========================
// Query Tests
// ==========================

func TestInventorySearch(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM units u JOIN drugs d")).
		WithArgs("clinic-1", "%lisinopril%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT u.unit_id, .* FROM units u JOIN drugs d ON d.drug_id = u.drug_id WHERE u.clinic_id = \$1`).
		WithArgs("clinic-1", "%lisinopril%", 50, 0).
		WillReturnRows(addUnitRow(addUnitRow(sqlmock.NewRows(unitRowColumns()), "unit-1", 40), "unit-2", 10))

	res, err := InventorySearch(context.Background(), db, Params{
		ClinicID:    "clinic-1",
		SearchQuery: smartsearch.Parse("lisinopril"),
		Page:        Page{Number: 1, Size: 50},
		Now:         fixedNow,
	})
	require.NoError(t, err)

	units := res.Data.([]models.Unit)
	require.Len(t, units, 2)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, 2, *res.Total)
	assert.Equal(t, "2026-03-25", units[0].ExpiryDate)
	assert.Equal(t, "LOT-1", units[0].LotID)
	assert.Equal(t, "0093-7214-01", units[0].Drug.NDCID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventorySearch_MissingClinic(t *testing.T) {
	db, _ := newMock(t)
	_, err := InventorySearch(context.Background(), db, Params{})
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestUnitDetails(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`WHERE u.unit_id = \$1 AND u.clinic_id = \$2`).
		WithArgs("unit-1", "clinic-1").
		WillReturnRows(addUnitRow(sqlmock.NewRows(unitRowColumns()), "unit-1", 40))

	res, err := UnitDetails(context.Background(), db, Params{ClinicID: "clinic-1", UnitID: "unit-1"})
	require.NoError(t, err)
	unit := res.Data.(*models.Unit)
	assert.Equal(t, "unit-1", unit.UnitID)
	assert.Equal(t, 40, unit.AvailableQuantity)
	assert.Equal(t, "drug-1", unit.DrugID)
}

func TestUnitDetails_NotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`WHERE u.unit_id = \$1 AND u.clinic_id = \$2`).
		WithArgs("missing", "clinic-1").
		WillReturnRows(sqlmock.NewRows(unitRowColumns()))

	_, err := UnitDetails(context.Background(), db, Params{ClinicID: "clinic-1", UnitID: "missing"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnitNotFound, apperrors.Code(err))
}

func TestTransactionsList(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions t WHERE t.clinic_id = $1 AND t.unit_id = $2 AND (t.notes ILIKE $3 OR t.patient_reference_id ILIKE $3)")).
		WithArgs("clinic-1", "unit-1", "%pt-9%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`ORDER BY t.timestamp DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("clinic-1", "unit-1", "%pt-9%", 5, 5).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns()).AddRow("tx-1", fixedNow, "check out", 2, "unit-1", "pt-9", "user-1", nil, "clinic-1"))

	res, err := TransactionsList(context.Background(), db, Params{
		ClinicID: "clinic-1",
		UnitID:   "unit-1",
		Search:   "pt-9",
		Page:     Page{Number: 2, Size: 5},
	})
	require.NoError(t, err)

	txs := res.Data.([]models.Transaction)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionCheckOut, txs[0].Type)
	assert.Equal(t, "pt-9", txs[0].PatientReferenceID)
	assert.Equal(t, "2026-03-10T15:30:00Z", txs[0].Timestamp)
	assert.Equal(t, 7, *res.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugSearch_ShortQuery(t *testing.T) {
	db, mock := newMock(t)

	res, err := DrugSearch(context.Background(), db, Params{ClinicID: "clinic-1", Search: " l "})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugSearch_InventoryFirstAndDeduplicated(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT DISTINCT .* WHERE u.clinic_id = \$1 AND u.available_quantity > 0`).
		WithArgs("clinic-1", "%lisin%").
		WillReturnRows(sqlmock.NewRows(drugRowColumns()).
			AddRow("drug-1", "Lisinopril 10 MG", "Lisinopril", 10.0, "mg", "0093-7214-01", "Tablet"))
	mock.ExpectQuery(`SELECT .* FROM drugs d WHERE d.ndc_id ILIKE \$1`).
		WithArgs("%lisin%", "%lisin%").
		WillReturnRows(sqlmock.NewRows(drugRowColumns()).
			AddRow("drug-1", "Lisinopril 10 MG", "Lisinopril", 10.0, "mg", "0093-7214-01", "Tablet").
			AddRow("drug-2", "Lisinopril 20 MG", "Lisinopril", 20.0, "mg", "0093-7215-01", "Tablet"))

	res, err := DrugSearch(context.Background(), db, Params{ClinicID: "clinic-1", Search: "lisin"})
	require.NoError(t, err)

	results := res.Data.([]models.DrugSearchResult)
	require.Len(t, results, 2)
	assert.True(t, results[0].InInventory)
	assert.Equal(t, "drug-1", results[0].DrugID)
	assert.False(t, results[1].InInventory)
	assert.Equal(t, "drug-2", results[1].DrugID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugSearch_CapsResults(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT DISTINCT`).
		WithArgs("clinic-1", "%0093%", "%0093%").
		WillReturnRows(sqlmock.NewRows(drugRowColumns()))

	catalog := sqlmock.NewRows(drugRowColumns())
	for i := 0; i < 15; i++ {
		catalog.AddRow("drug", "Drug", "Drug", 1.0, "mg", "0093-0000-"+string(rune('a'+i)), "Tablet")
	}
	mock.ExpectQuery(`FROM drugs d WHERE`).
		WithArgs("%0093%", "%0093%").
		WillReturnRows(catalog)

	res, err := DrugSearch(context.Background(), db, Params{ClinicID: "clinic-1", Search: "0093"})
	require.NoError(t, err)
	assert.Len(t, res.Data.([]models.DrugSearchResult), 10)
	assert.Equal(t, 10, res.RowCount)
}

func TestDrugByNDC(t *testing.T) {
	t.Run("in stock", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM units u JOIN drugs d .* = \$2 LIMIT 1`).
			WithArgs("clinic-1", "0093721401").
			WillReturnRows(sqlmock.NewRows(drugRowColumns()).
				AddRow("drug-1", "Lisinopril 10 MG", "Lisinopril", 10.0, "mg", "0093-7214-01", "Tablet"))

		res, err := DrugByNDC(context.Background(), db, Params{ClinicID: "clinic-1", NDC: "0093-7214-01"})
		require.NoError(t, err)
		d := res.Data.(*models.DrugSearchResult)
		assert.True(t, d.InInventory)
	})

	t.Run("catalog only", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM units u JOIN drugs d`).
			WithArgs("clinic-1", "0093721401").
			WillReturnRows(sqlmock.NewRows(drugRowColumns()))
		mock.ExpectQuery(`FROM drugs d WHERE regexp_replace`).
			WithArgs("0093721401").
			WillReturnRows(sqlmock.NewRows(drugRowColumns()).
				AddRow("drug-1", "Lisinopril 10 MG", "Lisinopril", 10.0, "mg", "0093-7214-01", "Tablet"))

		res, err := DrugByNDC(context.Background(), db, Params{ClinicID: "clinic-1", NDC: "00937214 01"})
		require.NoError(t, err)
		d := res.Data.(*models.DrugSearchResult)
		assert.False(t, d.InInventory)
		assert.Equal(t, 1, res.RowCount)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM drugs d WHERE regexp_replace`).
			WithArgs("123").
			WillReturnRows(sqlmock.NewRows(drugRowColumns()))

		res, err := DrugByNDC(context.Background(), db, Params{NDC: "123"})
		require.NoError(t, err)
		assert.Nil(t, res.Data)
		assert.Equal(t, 0, res.RowCount)
	})

	t.Run("no digits", func(t *testing.T) {
		db, _ := newMock(t)
		_, err := DrugByNDC(context.Background(), db, Params{NDC: "MANUAL"})
		assert.ErrorIs(t, err, ErrMissingParam)
	})
}

func transactionRowColumns() []string {
	return []string{
		"transaction_id", "timestamp", "type", "quantity", "unit_id",
		"patient_reference_id", "user_id", "notes", "clinic_id",
	}
}

func TestDashboardStats(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE available_quantity * 10 < total_quantity) FROM units WHERE clinic_id = $1 AND available_quantity > 0")).
		WithArgs("clinic-1", time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "expiring", "low"}).AddRow(42, 5, 3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE clinic_id = $1 AND timestamp >= $2")).
		WithArgs("clinic-1", fixedNow.AddDate(0, 0, -7), "check in", "check out").
		WillReturnRows(sqlmock.NewRows([]string{"check_ins", "check_outs"}).AddRow(8, 13))

	res, err := DashboardStats(context.Background(), db, Params{ClinicID: "clinic-1", Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, models.DashboardStats{
		TotalUnits:        42,
		UnitsExpiringSoon: 5,
		RecentCheckIns:    8,
		RecentCheckOuts:   13,
		LowStockAlerts:    3,
	}, res.Data)
	assert.Equal(t, 1, res.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardStats_MissingClinic(t *testing.T) {
	db, _ := newMock(t)
	_, err := DashboardStats(context.Background(), db, Params{})
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestUnitLookup(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.clinic_id = $1 AND (u.unit_id ILIKE $2 OR d.generic_name ILIKE $2) ORDER BY u.expiry_date ASC, u.unit_id ASC LIMIT 10")).
		WithArgs("clinic-1", "%unit\\_%").
		WillReturnRows(addUnitRow(sqlmock.NewRows(unitRowColumns()), "unit_1", 40))

	res, err := UnitLookup(context.Background(), db, Params{ClinicID: "clinic-1", Search: " unit_ "})
	require.NoError(t, err)

	units := res.Data.([]models.Unit)
	require.Len(t, units, 1)
	assert.Equal(t, "unit_1", units[0].UnitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitLookup_MissingSearch(t *testing.T) {
	db, _ := newMock(t)
	_, err := UnitLookup(context.Background(), db, Params{ClinicID: "clinic-1", Search: "  "})
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestTransactionDetails(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM transactions t WHERE t.transaction_id = $1 AND t.clinic_id = $2")).
			WithArgs("tx-1", "clinic-1").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns()).
				AddRow("tx-1", fixedNow, "check in", 30, "unit-1", nil, "user-1", "Initial check-in", "clinic-1"))

		res, err := TransactionDetails(context.Background(), db, Params{ClinicID: "clinic-1", TransactionID: "tx-1"})
		require.NoError(t, err)
		tx := res.Data.(*models.Transaction)
		assert.Equal(t, models.TransactionCheckIn, tx.Type)
		assert.Equal(t, 30, tx.Quantity)
		assert.Equal(t, "Initial check-in", tx.Notes)
		assert.Empty(t, tx.PatientReferenceID)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM transactions t WHERE`).
			WithArgs("tx-9", "clinic-1").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns()))

		_, err := TransactionDetails(context.Background(), db, Params{ClinicID: "clinic-1", TransactionID: "tx-9"})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTransactionNotFound, apperrors.Code(err))
	})

	t.Run("missing id", func(t *testing.T) {
		db, _ := newMock(t)
		_, err := TransactionDetails(context.Background(), db, Params{ClinicID: "clinic-1"})
		assert.ErrorIs(t, err, ErrMissingParam)
	})
}

func TestExecute_UnknownQueryType(t *testing.T) {
	db, _ := newMock(t)
	_, _, err := Execute(context.Background(), db, models.QueryType("drop_tables"), Params{})
	assert.ErrorIs(t, err, ErrUnknownQueryType)
}
