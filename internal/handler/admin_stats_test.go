package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAssemblesAllReports(t *testing.T) {
	h, mock := newAdminStack(t)

	overviewCols := []string{"customers", "active_customers", "operators", "routes", "buses",
		"schedules", "confirmed", "cancelled", "revenue", "refunded"}
	mock.ExpectQuery("FROM users WHERE role = 'CUSTOMER'").
		WillReturnRows(sqlmock.NewRows(overviewCols).
			AddRow(120, 85, 4, 12, 18, 60, 340, 25, 51000000, 2250000))

	rankCols := []string{"id", "origin", "destination", "bookings", "seats", "revenue"}
	mock.ExpectQuery("ORDER BY COUNT(.+) DESC").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(rankCols).
			AddRow(1, "Tehran", "Isfahan", 140, 310, 37200000))

	trendCols := []string{"day", "bookings", "revenue"}
	mock.ExpectQuery("FROM bookings").WithArgs(6).
		WillReturnRows(sqlmock.NewRows(trendCols).
			AddRow("2025-04-09", 12, 1440000).
			AddRow("2025-04-10", 20, 2400000))

	perfCols := []string{"id", "name", "trips", "bookings", "seats", "revenue"}
	mock.ExpectQuery("LEFT JOIN buses").
		WillReturnRows(sqlmock.NewRows(perfCols).
			AddRow(3, "Royal Safar", 40, 320, 700, 84000000).
			AddRow(4, "Seir o Safar", 0, 0, 0, 0))

	c, rec := newJSONContext(http.MethodGet, "/v1/admin/stats", "", 1, "ADMIN")

	require.NoError(t, h.Dashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Overview struct {
			Customers    int64 `json:"customers"`
			RevenueCents int64 `json:"revenue_cents"`
		} `json:"overview"`
		TopRoutes []struct {
			Destination string `json:"destination"`
			SeatsSold   int64  `json:"seats_sold"`
		} `json:"top_routes"`
		DailyTrend []struct {
			Day      string `json:"day"`
			Bookings int64  `json:"bookings"`
		} `json:"daily_trend"`
		Operators []struct {
			Name  string `json:"name"`
			Trips int64  `json:"trips"`
		} `json:"operators"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(120), resp.Overview.Customers)
	assert.Equal(t, int64(51000000), resp.Overview.RevenueCents)
	require.Len(t, resp.TopRoutes, 1)
	assert.Equal(t, "Isfahan", resp.TopRoutes[0].Destination)
	require.Len(t, resp.DailyTrend, 2)
	assert.Equal(t, int64(20), resp.DailyTrend[1].Bookings)
	require.Len(t, resp.Operators, 2)
	// Idle carriers still appear with zeroed numbers.
	assert.Equal(t, "Seir o Safar", resp.Operators[1].Name)
	assert.Zero(t, resp.Operators[1].Trips)
	require.NoError(t, mock.ExpectationsWereMet())
}
