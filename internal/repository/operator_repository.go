// This file defines repository methods for bus operators.  Operators are
// reference data: the booking core only ever reads them, and the admin
// console is their single writer.  Deletion is soft (is_active = 0) so that
// historic bookings keep resolving their operator.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrOperatorNotFound is returned when an operator lookup fails.
var ErrOperatorNotFound = errors.New("operator not found")

// OperatorRepo encapsulates all queries touching the operators table.
type OperatorRepo struct {
	db *sql.DB
}

// NewOperatorRepo constructs an OperatorRepo with the provided DB handle.
func NewOperatorRepo(db *sql.DB) *OperatorRepo {
	return &OperatorRepo{db: db}
}

const operatorCols = "id, name, contact_email, contact_phone, is_active, created_at, updated_at"

func scanOperator(row *sql.Row) (*model.Operator, error) {
	var o model.Operator
	if err := row.Scan(&o.ID, &o.Name, &o.ContactEmail, &o.ContactPhone, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Create inserts a new operator.  On success the ID is populated and a
// follow-up SELECT fills the timestamp and default fields so callers get a
// complete record back.
func (r *OperatorRepo) Create(ctx context.Context, o *model.Operator) error {
	const qInsert = "INSERT INTO operators (name, contact_email, contact_phone) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, o.Name, o.ContactEmail, o.ContactPhone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	fresh, err := r.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}
	*o = *fresh
	return nil
}

// GetByID fetches an operator regardless of its active flag.
func (r *OperatorRepo) GetByID(ctx context.Context, id uint64) (*model.Operator, error) {
	const q = "SELECT " + operatorCols + " FROM operators WHERE id = ?"
	return scanOperator(r.db.QueryRowContext(ctx, q, id))
}

// GetActiveByID fetches an operator only when it has not been deactivated.
// Schedule creation uses this to refuse inactive carriers.
func (r *OperatorRepo) GetActiveByID(ctx context.Context, id uint64) (*model.Operator, error) {
	const q = "SELECT " + operatorCols + " FROM operators WHERE id = ? AND is_active = 1"
	return scanOperator(r.db.QueryRowContext(ctx, q, id))
}

// List returns all operators ordered by id.  Inactive ones are included so
// the admin console can reactivate them.
func (r *OperatorRepo) List(ctx context.Context) ([]*model.Operator, error) {
	const q = "SELECT " + operatorCols + " FROM operators ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Operator
	for rows.Next() {
		o := new(model.Operator)
		if err := rows.Scan(&o.ID, &o.Name, &o.ContactEmail, &o.ContactPhone, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable operator fields.  Returns ErrNoChange when
// the stored row already carries the submitted values and sql.ErrNoRows
// when the operator does not exist.
func (r *OperatorRepo) Update(ctx context.Context, o *model.Operator) error {
	cur, err := r.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}
	if cur.Name == o.Name && cur.ContactEmail == o.ContactEmail && cur.ContactPhone == o.ContactPhone && cur.IsActive == o.IsActive {
		return ErrNoChange
	}
	const q = `UPDATE operators
	           SET name = ?, contact_email = ?, contact_phone = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, o.Name, o.ContactEmail, o.ContactPhone, o.IsActive, o.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate soft-deletes an operator.  Returns sql.ErrNoRows when the
// operator does not exist or is already inactive.
func (r *OperatorRepo) Deactivate(ctx context.Context, id uint64) error {
	const q = "UPDATE operators SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1"
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
