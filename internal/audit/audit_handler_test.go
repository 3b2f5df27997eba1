package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"go-payaudit/internal/audit"
	auditerrors "go-payaudit/internal/audit/errors"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeAuditService struct {
	runAuditFn  func(ctx context.Context, processingID, companyID, period, operatorID string) (audit.RunResult, error)
	getReportFn func(ctx context.Context, companyID, processingID string) (audit.ReportResponse, error)
}

func (f *fakeAuditService) RunAudit(ctx context.Context, processingID, companyID, period, operatorID string) (audit.RunResult, error) {
	return f.runAuditFn(ctx, processingID, companyID, period, operatorID)
}

func (f *fakeAuditService) GetReport(ctx context.Context, companyID, processingID string) (audit.ReportResponse, error) {
	return f.getReportFn(ctx, companyID, processingID)
}

func TestAuditHandler_RunAudit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success returns 201 with run summary", func(t *testing.T) {
		companyID := uuid.New().String()
		operatorID := uuid.New().String()
		processingID := uuid.New().String()
		reportID := uuid.New().String()

		svc := &fakeAuditService{
			runAuditFn: func(ctx context.Context, pID, cID, period, oID string) (audit.RunResult, error) {
				assert.Equal(t, processingID, pID)
				assert.Equal(t, companyID, cID)
				assert.Equal(t, operatorID, oID)
				return audit.RunResult{
					ProcessingID:        pID,
					Status:              audit.RunOutcomeSucceeded,
					TotalDivergences:    3,
					CriticalDivergences: 1,
					ReportID:            reportID,
					PostingsGenerated:   1,
				}, nil
			},
		}

		h := audit.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"processing_id":"` + processingID + `"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/audits", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("company_id", companyID)
		c.Set("operator_id", operatorID)

		h.RunAudit(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)

		var resp audit.RunAuditResponse
		assert.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, reportID, resp.ReportID)
		assert.Equal(t, 3, resp.TotalDivergences)
		assert.Equal(t, 1, resp.CriticalDivergences)
	})

	t.Run("missing processing_id fails validation", func(t *testing.T) {
		svc := &fakeAuditService{}

		h := audit.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/audits", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("company_id", uuid.New().String())
		c.Set("operator_id", uuid.New().String())

		h.RunAudit(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
	})

	t.Run("service error maps to typed status", func(t *testing.T) {
		svc := &fakeAuditService{
			runAuditFn: func(ctx context.Context, pID, cID, period, oID string) (audit.RunResult, error) {
				return audit.RunResult{}, auditerrors.ErrProcessingNotFound
			},
		}

		h := audit.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"processing_id":"` + uuid.New().String() + `"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/audits", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("company_id", uuid.New().String())
		c.Set("operator_id", uuid.New().String())

		h.RunAudit(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})
}

func TestAuditHandler_GetReport(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success returns report", func(t *testing.T) {
		companyID := uuid.New().String()
		processingID := uuid.New().String()

		svc := &fakeAuditService{
			getReportFn: func(ctx context.Context, cID, pID string) (audit.ReportResponse, error) {
				assert.Equal(t, companyID, cID)
				assert.Equal(t, processingID, pID)
				return audit.ReportResponse{
					ReportID:     uuid.New().String(),
					ProcessingID: pID,
					Period:       "2025-03",
					Status:       audit.ReportStatusCompleted,
				}, nil
			},
		}

		h := audit.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/audits/"+processingID, nil)
		c.Params = gin.Params{{Key: "processingId", Value: processingID}}
		c.Set("company_id", companyID)

		h.GetReport(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)

		var resp audit.ReportResponse
		assert.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, processingID, resp.ProcessingID)
	})

	t.Run("report not found", func(t *testing.T) {
		svc := &fakeAuditService{
			getReportFn: func(ctx context.Context, cID, pID string) (audit.ReportResponse, error) {
				return audit.ReportResponse{}, auditerrors.ErrReportNotFound
			},
		}

		h := audit.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/audits/"+uuid.New().String(), nil)
		c.Params = gin.Params{{Key: "processingId", Value: uuid.New().String()}}
		c.Set("company_id", uuid.New().String())

		h.GetReport(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
