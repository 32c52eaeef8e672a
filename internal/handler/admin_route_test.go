package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

var routeCols = []string{"id", "operator_id", "origin", "destination", "distance_km",
	"duration_min", "is_active", "created_at", "updated_at"}

func routeRow(id uint64, origin, destination string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(routeCols).AddRow(id, 3, origin, destination, 450, 360, true, now, now)
}

func TestCreateRouteRejectsSameCity(t *testing.T) {
	h, mock := newAdminStack(t)

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"operator_id":3,"origin":"Tehran","destination":" tehran ","distance_km":1,"duration_min":10}`,
		1, "ADMIN")

	require.NoError(t, h.CreateRoute(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "origin and destination must differ")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRouteVerifiesOperator(t *testing.T) {
	h, mock := newAdminStack(t)

	mock.ExpectQuery("FROM operators WHERE id = (.+) AND is_active = 1").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(operatorCols))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"operator_id":3,"origin":"Tehran","destination":"Isfahan","distance_km":450,"duration_min":360}`,
		1, "ADMIN")

	require.NoError(t, h.CreateRoute(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRouteReturnsStoredRecord(t *testing.T) {
	h, mock := newAdminStack(t)

	mock.ExpectQuery("FROM operators WHERE id = (.+) AND is_active = 1").WithArgs(3).
		WillReturnRows(operatorRow(3, "Royal Safar", true))
	mock.ExpectExec("INSERT INTO routes").
		WithArgs(3, "Tehran", "Isfahan", 450, 360).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM routes WHERE id =").WithArgs(5).
		WillReturnRows(routeRow(5, "Tehran", "Isfahan"))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"operator_id":3,"origin":" Tehran ","destination":"Isfahan","distance_km":450,"duration_min":360}`,
		1, "ADMIN")

	require.NoError(t, h.CreateRoute(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var rt model.Route
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rt))
	assert.Equal(t, uint64(5), rt.ID)
	assert.Equal(t, "Tehran", rt.Origin)
	assert.Equal(t, uint32(360), rt.DurationMin)
	require.NoError(t, mock.ExpectationsWereMet())
}
