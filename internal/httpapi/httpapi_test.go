package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/twg-quant/riskbatch/internal/orchestrator"
	"github.com/twg-quant/riskbatch/internal/store"
)

func newMockServer(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	// Pings are monitored so the /health tests' ExpectPing calls take
	// effect; gorm's automatic ping on Open is disabled so it does not
	// consume those expectations.
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	s := store.New(gormDB)
	o := orchestrator.New(s, zerolog.Nop(), "")
	return New(s, o, zerolog.Nop()), mock
}

func TestHandleHealth_OK(t *testing.T) {
	handler, mock := newMockServer(t)
	mock.ExpectPing()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true, "store": "up"}`, rec.Body.String())
}

func TestHandleHealth_StoreUnreachable(t *testing.T) {
	handler, mock := newMockServer(t)
	mock.ExpectPing().WillReturnError(assertErr{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ok": false, "store": "down"}`, rec.Body.String())
}

func TestHandleCreateRun_InvalidBody(t *testing.T) {
	handler, _ := newMockServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type assertErr struct{}

func (assertErr) Error() string { return "store unreachable" }
