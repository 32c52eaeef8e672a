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

var busCols = []string{"id", "operator_id", "registration_no", "bus_type", "total_seats",
	"is_active", "created_at", "updated_at"}

func busRow(id uint64, registration, busType string, seats uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(busCols).AddRow(id, 3, registration, busType, seats, true, now, now)
}

func TestCreateBusValidatesBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing operator", `{"registration_no":"22-B-44125","total_seats":44}`, "operator_id is required"},
		{"blank plate", `{"operator_id":3,"registration_no":"  ","total_seats":44}`, "registration_no is required"},
		{"unknown type", `{"operator_id":3,"registration_no":"22-B-44125","bus_type":"LUXURY","total_seats":44}`, "bus_type must be"},
		{"zero seats", `{"operator_id":3,"registration_no":"22-B-44125","total_seats":0}`, "total_seats must be"},
		{"label space overflow", `{"operator_id":3,"registration_no":"22-B-44125","total_seats":100}`, "total_seats must be"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock := newAdminStack(t)
			c, rec := newJSONContext(http.MethodPost, "/", tc.body, 1, "ADMIN")

			require.NoError(t, h.CreateBus(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateBusRefusesInactiveOperator(t *testing.T) {
	h, mock := newAdminStack(t)

	mock.ExpectQuery("FROM operators WHERE id = (.+) AND is_active = 1").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(operatorCols))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"operator_id":3,"registration_no":"22-B-44125","total_seats":44}`, 1, "ADMIN")

	require.NoError(t, h.CreateBus(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "operator not found or inactive")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBusNormalizesInput(t *testing.T) {
	h, mock := newAdminStack(t)

	mock.ExpectQuery("FROM operators WHERE id = (.+) AND is_active = 1").WithArgs(3).
		WillReturnRows(operatorRow(3, "Royal Safar", true))
	mock.ExpectExec("INSERT INTO buses").
		WithArgs(3, "22-B-44125", model.BusTypeAC, 44).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery("FROM buses WHERE id =").WithArgs(9).
		WillReturnRows(busRow(9, "22-B-44125", model.BusTypeAC, 44))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"operator_id":3,"registration_no":" 22-b-44125 ","bus_type":"ac","total_seats":44}`, 1, "ADMIN")

	require.NoError(t, h.CreateBus(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var b model.Bus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, uint64(9), b.ID)
	assert.Equal(t, "22-B-44125", b.RegistrationNo)
	assert.Equal(t, model.BusTypeAC, b.BusType)
	require.NoError(t, mock.ExpectationsWereMet())
}
