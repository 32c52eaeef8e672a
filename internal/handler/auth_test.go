package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

func newAuthStack(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4, // minimum cost keeps the tests fast
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

var userCols = []string{"id", "email", "password_hash", "full_name", "phone", "role",
	"is_active", "created_at", "updated_at"}

func userRow(t *testing.T, id uint64, email, password, role string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows(userCols).AddRow(id, email, hash, "Amir Hosseini", "+98-912-555-0134", role, true, now, now)
}

func TestRegisterValidatesBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing email", `{"password":"long-enough","full_name":"Sara Ahmadi"}`, "email/password required"},
		{"missing password", `{"email":"sara@example.com","full_name":"Sara Ahmadi"}`, "email/password required"},
		{"missing name", `{"email":"sara@example.com","password":"long-enough"}`, "full_name required"},
		{"short password", `{"email":"sara@example.com","password":"short","full_name":"Sara Ahmadi"}`, "at least 8 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock := newAuthStack(t)
			c, rec := newJSONContext(http.MethodPost, "/", tc.body, 0, "")

			require.NoError(t, h.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegisterConflictsOnExistingEmail(t *testing.T) {
	h, mock := newAuthStack(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("sara@example.com", sqlmock.AnyArg(), "Sara Ahmadi", "", model.RoleCustomer).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'sara@example.com' for key 'users.email'"))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"email":"sara@example.com","password":"long-enough","full_name":"Sara Ahmadi"}`, 0, "")

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already exists")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterReturnsTokenPair(t *testing.T) {
	h, mock := newAuthStack(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("sara@example.com", sqlmock.AnyArg(), "Sara Ahmadi", "", model.RoleCustomer).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"email":" Sara@Example.COM ","password":"long-enough","full_name":"Sara Ahmadi"}`, 0, "")

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(5), resp.User.ID)
	assert.Equal(t, "sara@example.com", resp.User.Email)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.Access.Token)
	// The raw refresh token is 48 random bytes hex encoded.
	assert.Len(t, resp.Refresh.Token, 96)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		h, mock := newAuthStack(t)
		mock.ExpectQuery("FROM users WHERE email=").WithArgs("amir@example.com").
			WillReturnRows(sqlmock.NewRows(userCols))

		c, rec := newJSONContext(http.MethodPost, "/",
			`{"email":"amir@example.com","password":"whatever-here"}`, 0, "")

		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid credentials")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		h, mock := newAuthStack(t)
		mock.ExpectQuery("FROM users WHERE email=").WithArgs("amir@example.com").
			WillReturnRows(userRow(t, 5, "amir@example.com", "right-password", model.RoleCustomer))

		c, rec := newJSONContext(http.MethodPost, "/",
			`{"email":"amir@example.com","password":"wrong-password"}`, 0, "")

		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid credentials")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoginReturnsSession(t *testing.T) {
	h, mock := newAuthStack(t)

	mock.ExpectQuery("FROM users WHERE email=").WithArgs("amir@example.com").
		WillReturnRows(userRow(t, 5, "amir@example.com", "right-password", model.RoleCustomer))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(http.MethodPost, "/",
		`{"email":" Amir@Example.COM ","password":"right-password"}`, 0, "")

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(5), resp.User.ID)
	assert.Equal(t, "Amir Hosseini", resp.User.FullName)
	assert.NotEmpty(t, resp.Access.Token)
	assert.Len(t, resp.Refresh.Token, 96)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRotatesSession(t *testing.T) {
	h, mock := newAuthStack(t)
	raw := strings.Repeat("ab", 48)
	hash := utils.HashRefreshRaw(raw)

	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash=").WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(5, time.Now().UTC().Add(24*time.Hour), nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(5).
		WillReturnRows(userRow(t, 5, "amir@example.com", "right-password", model.RoleCustomer))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	c, rec := newJSONContext(http.MethodPost, "/", `{"refresh_token":"`+raw+`"}`, 0, "")

	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(5), resp.User.ID)
	assert.NotEmpty(t, resp.Access.Token)
	// Rotation hands out a fresh refresh token, never the one spent.
	assert.NotEqual(t, raw, resp.Refresh.Token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	h, mock := newAuthStack(t)
	raw := strings.Repeat("cd", 48)

	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash=").WithArgs(utils.HashRefreshRaw(raw)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(5, time.Now().UTC().Add(24*time.Hour), time.Now().UTC()))

	c, rec := newJSONContext(http.MethodPost, "/", `{"refresh_token":"`+raw+`"}`, 0, "")

	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid refresh")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutRevokesEverySessionForBearer(t *testing.T) {
	h, mock := newAuthStack(t)

	access, err := utils.NewAccessToken("test-secret", 5, model.RoleCustomer, 15)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))

	c, rec := newJSONContext(http.MethodPost, "/", "", 0, "")
	c.Request().Header.Set("Authorization", "Bearer "+access.Token)

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutRevokesSingleSession(t *testing.T) {
	h, mock := newAuthStack(t)
	raw := strings.Repeat("ef", 48)
	hash := utils.HashRefreshRaw(raw)

	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash=").WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(5, time.Now().UTC().Add(24*time.Hour), nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONContext(http.MethodPost, "/", `{"refresh_token":"`+raw+`"}`, 0, "")

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutNeedsSomeCredential(t *testing.T) {
	h, mock := newAuthStack(t)

	c, rec := newJSONContext(http.MethodPost, "/", "", 0, "")

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "provide Authorization header or refresh_token")
	require.NoError(t, mock.ExpectationsWereMet())
}
