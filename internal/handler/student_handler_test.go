package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

func studentContext(t *testing.T, method, path string) (*StudentHandler, *studentServicesMock, *http.Request) {
	t.Helper()
	svc := &studentServicesMock{}
	req, _ := http.NewRequest(method, path, nil)
	return NewStudentHandler(svc, svc, svc), svc, req
}

func TestStudentHandlerSummary(t *testing.T) {
	h, _, req := studentContext(t, http.MethodGet, "/students/stu-1/events/evt-1/summary")
	c, w := newTestContext(req, models.RoleAuditor)
	c.AddParam("studentId", "stu-1")
	c.AddParam("eventId", "evt-1")

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"general_state":"current"`)
}

func TestStudentHandlerSummaryNotFound(t *testing.T) {
	svc := &studentServicesMock{summaryErr: appErrors.Clone(appErrors.ErrNotFound, "payment plan not found")}
	h := NewStudentHandler(svc, svc, svc)
	req, _ := http.NewRequest(http.MethodGet, "/students/stu-1/events/evt-1/summary", nil)
	c, w := newTestContext(req, models.RoleAuditor)

	h.Summary(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerEligibility(t *testing.T) {
	h, _, req := studentContext(t, http.MethodGet, "/students/stu-1/events/evt-1/eligibility")
	c, w := newTestContext(req, models.RoleAuditor)
	c.AddParam("studentId", "stu-1")
	c.AddParam("eventId", "evt-1")

	h.Eligibility(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eligible":true`)
}

func TestStudentHandlerRecomputeStatus(t *testing.T) {
	h, svc, req := studentContext(t, http.MethodPost, "/students/stu-1/events/evt-1/status/recompute")
	c, w := newTestContext(req, models.RoleBursar)
	c.AddParam("studentId", "stu-1")
	c.AddParam("eventId", "evt-1")

	h.RecomputeStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"stu-1", "evt-1"}, svc.recomputed)
}

func TestStudentHandlerStatement(t *testing.T) {
	h, _, req := studentContext(t, http.MethodGet, "/students/stu-1/events/evt-1/statement")
	c, w := newTestContext(req, models.RoleAuditor)

	h.Statement(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="statement.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}
