package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

func newOperatorRepo(t *testing.T) (*OperatorRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewOperatorRepo(db), mock
}

var testOperatorCols = []string{"id", "name", "contact_email", "contact_phone", "is_active", "created_at", "updated_at"}

func testOperatorRow(id uint64, name string, active bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(testOperatorCols).
		AddRow(id, name, "ops@example.com", "+98-21-555-0199", active, now, now)
}

func TestOperatorCreateReadsBackDefaults(t *testing.T) {
	repo, mock := newOperatorRepo(t)

	mock.ExpectExec("INSERT INTO operators").
		WithArgs("Royal Safar", "ops@example.com", "+98-21-555-0199").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("FROM operators WHERE id =").WithArgs(3).
		WillReturnRows(testOperatorRow(3, "Royal Safar", true))

	o := &model.Operator{Name: "Royal Safar", ContactEmail: "ops@example.com", ContactPhone: "+98-21-555-0199"}
	require.NoError(t, repo.Create(context.Background(), o))
	assert.Equal(t, uint64(3), o.ID)
	assert.True(t, o.IsActive) // filled by the re-read, not the caller
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorGetActiveByIDSkipsDeactivated(t *testing.T) {
	repo, mock := newOperatorRepo(t)

	mock.ExpectQuery("FROM operators WHERE id = (.+) AND is_active = 1").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(testOperatorCols))

	_, err := repo.GetActiveByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrOperatorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorListIncludesInactive(t *testing.T) {
	repo, mock := newOperatorRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM operators ORDER BY id").
		WillReturnRows(sqlmock.NewRows(testOperatorCols).
			AddRow(1, "Royal Safar", "ops@example.com", "+98-21-555-0199", true, now, now).
			AddRow(2, "Seir o Safar", "info@example.com", "+98-21-555-0142", false, now, now))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[1].IsActive) // deactivated carriers stay listed for reactivation
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorUpdate(t *testing.T) {
	repo, mock := newOperatorRepo(t)
	o := &model.Operator{ID: 3, Name: "Royal Safar", ContactEmail: "ops@example.com", ContactPhone: "+98-21-555-0199", IsActive: true}

	t.Run("changed", func(t *testing.T) {
		mock.ExpectQuery("FROM operators WHERE id =").WithArgs(3).
			WillReturnRows(testOperatorRow(3, "Royal Safar Lines", true))
		mock.ExpectExec("UPDATE operators").
			WithArgs("Royal Safar", "ops@example.com", "+98-21-555-0199", true, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Update(context.Background(), o))
	})

	t.Run("no change", func(t *testing.T) {
		mock.ExpectQuery("FROM operators WHERE id =").WithArgs(3).
			WillReturnRows(testOperatorRow(3, "Royal Safar", true))
		assert.ErrorIs(t, repo.Update(context.Background(), o), ErrNoChange)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("FROM operators WHERE id =").WithArgs(3).
			WillReturnRows(sqlmock.NewRows(testOperatorCols))
		assert.ErrorIs(t, repo.Update(context.Background(), o), ErrOperatorNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorDeactivateOnlyOnce(t *testing.T) {
	repo, mock := newOperatorRepo(t)

	mock.ExpectExec("UPDATE operators SET is_active = 0").WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE operators SET is_active = 0").WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Deactivate(context.Background(), 3))
	assert.ErrorIs(t, repo.Deactivate(context.Background(), 3), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
