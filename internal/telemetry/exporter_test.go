package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicel/migsim/internal/telemetry"
)

func TestExporterServesRegisteredGauges(t *testing.T) {
	e := telemetry.NewExporter()
	e.SetActiveWorkers("LARGE", 3)
	e.SetCompletedWorkers("LARGE", 7)
	e.SetActiveMigrations(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	e.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `migsim_active_workers{tier="LARGE"} 3`))
	assert.True(t, strings.Contains(body, `migsim_completed_workers{tier="LARGE"} 7`))
	assert.True(t, strings.Contains(body, "migsim_active_migrations 2"))
}

func TestExporterClampsNegativeValues(t *testing.T) {
	e := telemetry.NewExporter()
	e.SetActiveWorkers("SMALL", -5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `migsim_active_workers{tier="SMALL"} 0`)
}
