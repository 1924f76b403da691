package checkinunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(&Config{Timeout: 5 * time.Second}, db, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func intPtr(v int) *int { return &v }

func validInput() *Input {
	return &Input{
		ClinicID:      "clinic-1",
		UserID:        "user-1",
		DrugID:        "drug-1",
		TotalQuantity: 30,
		LotID:         "LOT-42",
		ExpiryDate:    "2027-01-31",
	}
}

func expectUnitAndTransaction(mock sqlmock.Sqlmock, drugID string, total, available int) {
	expiry := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO units`).
		WithArgs(sqlmock.AnyArg(), total, available, "LOT-42", expiry, fixedNow, "user-1", drugID, nil, "clinic-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(sqlmock.AnyArg(), fixedNow, "check in", total, sqlmock.AnyArg(), "user-1", checkInNote, "clinic-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ExistingDrugID(t *testing.T) {
	h, mock := createTestHandler(t)

	mock.ExpectBegin()
	expectUnitAndTransaction(mock, "drug-1", 30, 30)
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "drug-1", output.DrugID)
	assert.False(t, output.DrugCreated)
	assert.NotEmpty(t, output.UnitID)
	assert.NotEmpty(t, output.TransactionID)
	assert.Equal(t, 30, output.AvailableQuantity)
	assert.Equal(t, "2027-01-31", output.ExpiryDate)
	assert.Equal(t, "2026-05-04T12:00:00Z", output.CheckedInAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PartialAvailability(t *testing.T) {
	h, mock := createTestHandler(t)
	input := validInput()
	input.AvailableQuantity = intPtr(12)

	mock.ExpectBegin()
	expectUnitAndTransaction(mock, "drug-1", 30, 12)
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 12, output.AvailableQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DrugResolvedByNDC(t *testing.T) {
	h, mock := createTestHandler(t)
	input := validInput()
	input.DrugID = ""
	input.Drug = &models.DrugData{
		MedicationName: "Lisinopril 10 MG Oral Tablet",
		GenericName:    "Lisinopril",
		Strength:       10,
		StrengthUnit:   "mg",
		NDCID:          "0093-7214-01",
		Form:           "Tablet",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT drug_id FROM drugs WHERE ndc_id = \$1`).
		WithArgs("0093-7214-01").
		WillReturnRows(sqlmock.NewRows([]string{"drug_id"}).AddRow("drug-9"))
	expectUnitAndTransaction(mock, "drug-9", 30, 30)
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "drug-9", output.DrugID)
	assert.False(t, output.DrugCreated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DrugResolvedBySimilarity(t *testing.T) {
	h, mock := createTestHandler(t)
	input := validInput()
	input.DrugID = ""
	input.Drug = &models.DrugData{
		MedicationName: "Lisinopril 10 MG",
		GenericName:    "Lisinopril",
		Strength:       10,
		StrengthUnit:   "mg",
		NDCID:          "0093-7214-01",
		Form:           "Tablet",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE ndc_id = \$1`).
		WithArgs("0093-7214-01").
		WillReturnRows(sqlmock.NewRows([]string{"drug_id"}))
	mock.ExpectQuery(`WHERE generic_name = \$1 AND strength = \$2 AND strength_unit = \$3 AND form = \$4`).
		WithArgs("Lisinopril", 10.0, "mg", "Tablet").
		WillReturnRows(sqlmock.NewRows([]string{"drug_id"}).AddRow("drug-3"))
	expectUnitAndTransaction(mock, "drug-3", 30, 30)
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "drug-3", output.DrugID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CreatesManualDrug(t *testing.T) {
	h, mock := createTestHandler(t)
	input := validInput()
	input.DrugID = ""
	input.Drug = &models.DrugData{
		MedicationName: "Compounded Cream",
		GenericName:    "Compounded",
		Strength:       2,
		StrengthUnit:   "%",
		Form:           "Cream",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE generic_name = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"drug_id"}))
	mock.ExpectExec(`INSERT INTO drugs`).
		WithArgs(sqlmock.AnyArg(), "Compounded Cream", "Compounded", 2.0, "%",
			fmt.Sprintf("MANUAL-%d", fixedNow.UnixMilli()), "Cream").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO units`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, output.DrugCreated)
	assert.NotEmpty(t, output.DrugID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		want   string
	}{
		{"no drug", func(in *Input) { in.DrugID = "" }, "either drugId or drug"},
		{"missing clinic", func(in *Input) { in.ClinicID = "" }, "clinicId"},
		{"missing user and expiry", func(in *Input) { in.UserID = ""; in.ExpiryDate = "" }, "userId, expiryDate"},
		{"zero quantity", func(in *Input) { in.TotalQuantity = 0 }, "totalQuantity"},
		{"available above total", func(in *Input) { in.AvailableQuantity = intPtr(31) }, "availableQuantity"},
		{"negative available", func(in *Input) { in.AvailableQuantity = intPtr(-1) }, "availableQuantity"},
		{"bad expiry", func(in *Input) { in.ExpiryDate = "31/01/2027" }, "expiryDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t)
			input := validInput()
			tt.mutate(input)

			_, err := h.Execute(context.Background(), input)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.Code(err))
			assert.Contains(t, err.(*apperrors.StandardError).Details, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_RFC3339Expiry(t *testing.T) {
	h, mock := createTestHandler(t)
	input := validInput()
	input.ExpiryDate = "2027-01-31T00:00:00Z"

	mock.ExpectBegin()
	expectUnitAndTransaction(mock, "drug-1", 30, 30)
	mock.ExpectCommit()

	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
}

func TestHandler_Execute_UnitInsertRollsBack(t *testing.T) {
	h, mock := createTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO units`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := h.Execute(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseInsertFailed, apperrors.Code(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_TransactionInsertRollsBack(t *testing.T) {
	h, mock := createTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO units`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := h.Execute(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseInsertFailed, apperrors.Code(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DrugLookupFails(t *testing.T) {
	h, mock := createTestHandler(t)
	input := validInput()
	input.DrugID = ""
	input.Drug = &models.DrugData{GenericName: "X", NDCID: "1"}

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE ndc_id`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDrugResolutionFailed, apperrors.Code(err))
}

func TestHandler_Execute_BeginFails(t *testing.T) {
	h, mock := createTestHandler(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := h.Execute(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseConnectionFailed, apperrors.Code(err))
}
