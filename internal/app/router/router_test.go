package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coop-ledger/internal/pkg/consts"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fixedSnapshot struct{}

func (fixedSnapshot) Version() uint64        { return 3 }
func (fixedSnapshot) LastUpdated() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

func TestSetupRouter_RegistersRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter("coop-ledger", Dependencies{Snapshot: fixedSnapshot{}})

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/v1/health",
		"GET /api/v1/members",
		"POST /api/v1/members",
		"POST /api/v1/members/bulk-delete",
		"GET /api/v1/members/:id",
		"PATCH /api/v1/members/:id",
		"DELETE /api/v1/members/:id",
		"GET /api/v1/members/:id/transactions",
		"GET /api/v1/members/:id/loans",
		"POST /api/v1/payments",
		"POST /api/v1/ledger/recover",
		"GET /api/v1/reports/summary",
		"GET /api/v1/reports/members.csv",
		"GET /api/v1/reports/transactions.csv",
		"POST /api/v1/reports/export",
		"POST /api/v1/loans",
		"GET /api/v1/loans",
		"GET /api/v1/loans/:id",
		"POST /api/v1/loans/:id/payments",
		"PATCH /api/v1/loans/:id/status",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestSetupRouter_HealthCheckCarriesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter("coop-ledger", Dependencies{Snapshot: fixedSnapshot{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(consts.TraceIDHeader, "trace-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get(consts.TraceIDHeader))
	assert.Contains(t, w.Body.String(), `"snapshotVersion":3`)
}
