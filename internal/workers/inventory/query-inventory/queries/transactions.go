// internal/workers/inventory/query-inventory/queries/transactions.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "clinic-inventory-workers/internal/common/errors"
	"clinic-inventory-workers/internal/models"
)

// TransactionColumns lists what ScanTransaction reads, in order.
const TransactionColumns = `t.transaction_id, t.timestamp, t.type, t.quantity, t.unit_id,
	t.patient_reference_id, t.user_id, t.notes, t.clinic_id`

// TransactionsList returns the clinic's transactions, newest first.
func TransactionsList(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	if p.ClinicID == "" {
		return nil, fmt.Errorf("%w: clinicId", ErrMissingParam)
	}

	b := &whereBuilder{}
	b.add("t.clinic_id = " + b.arg(p.ClinicID))
	if p.UnitID != "" {
		b.add("t.unit_id = " + b.arg(p.UnitID))
	}
	if p.TransactionID != "" {
		b.add("t.transaction_id = " + b.arg(p.TransactionID))
	}
	if p.Search != "" {
		s := b.arg(containsPattern(p.Search))
		b.add(fmt.Sprintf("(t.notes ILIKE %s OR t.patient_reference_id ILIKE %s)", s, s))
	}
	where := b.String()

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions t "+where, b.args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := b.arg(p.Page.Size)
	offset := b.arg(p.Page.Offset())
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions t %s ORDER BY t.timestamp DESC LIMIT %s OFFSET %s",
			TransactionColumns, where, limit, offset),
		b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := ScanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{Data: txs, RowCount: len(txs), Total: intPtr(total)}, nil
}

// TransactionDetails returns one transaction of the clinic.
func TransactionDetails(ctx context.Context, db *sql.DB, p Params) (*Result, error) {
	if p.TransactionID == "" || p.ClinicID == "" {
		return nil, fmt.Errorf("%w: transactionId and clinicId", ErrMissingParam)
	}

	row := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions t WHERE t.transaction_id = $1 AND t.clinic_id = $2", TransactionColumns),
		p.TransactionID, p.ClinicID)

	tx, err := ScanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewTransactionNotFoundError(p.TransactionID)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Data: tx, RowCount: 1}, nil
}

// ScanTransaction reads one row selected with TransactionColumns.
func ScanTransaction(row RowScanner) (*models.Transaction, error) {
	var (
		tx                models.Transaction
		ts                time.Time
		patientRef, notes sql.NullString
	)
	if err := row.Scan(&tx.TransactionID, &ts, &tx.Type, &tx.Quantity, &tx.UnitID,
		&patientRef, &tx.UserID, &notes, &tx.ClinicID); err != nil {
		return nil, err
	}
	tx.Timestamp = ts.UTC().Format(time.RFC3339)
	tx.PatientReferenceID = patientRef.String
	tx.Notes = notes.String
	return &tx, nil
}
