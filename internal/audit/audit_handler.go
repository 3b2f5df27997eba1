package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-payaudit/internal/shared/apperror"
	"go-payaudit/internal/shared/response"
)

type Handler struct {
	service Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("audit.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.handler")
	}
	return &Handler{service: service, logger: l}
}

func NewHandlerWithRedis(service Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	h := NewHandler(service, logger...)
	h.rdb = rdb
	return h
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("audit request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)

	h.releaseIdempotencyLock(c)
}

func (h *Handler) RunAudit(c *gin.Context) {
	companyID := c.GetString("company_id")
	operatorID := c.GetString("operator_id")
	h.logger.Debug("http run audit", zap.String("company_id", companyID))

	var req RunAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	result, err := h.service.RunAudit(
		c.Request.Context(), req.ProcessingID, companyID, req.Period, operatorID,
	)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp := RunAuditResponse{
		ProcessingID:        result.ProcessingID,
		Status:              result.Status,
		TotalDivergences:    result.TotalDivergences,
		CriticalDivergences: result.CriticalDivergences,
		ReportID:            result.ReportID,
		PostingsGenerated:   result.PostingsGenerated,
	}

	h.cacheIdempotentResponse(c, resp)
	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) GetReport(c *gin.Context) {
	companyID := c.GetString("company_id")
	processingID := c.Param("processingId")

	resp, err := h.service.GetReport(c.Request.Context(), companyID, processingID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// cacheIdempotentResponse stores the successful response under the
// idempotency key set by the middleware so retries replay it.
func (h *Handler) cacheIdempotentResponse(c *gin.Context, resp any) {
	if h.rdb == nil {
		return
	}
	cacheKey := c.GetString("idempotency_cache_key")
	if cacheKey == "" {
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}

	ctx := c.Request.Context()
	_ = h.rdb.Set(ctx, cacheKey, payload, 24*time.Hour).Err()
	if lockKey := c.GetString("idempotency_lock_key"); lockKey != "" {
		_ = h.rdb.Del(ctx, lockKey).Err()
	}
}

// releaseIdempotencyLock frees the in-flight lock after a failure so the
// caller can retry with the same key.
func (h *Handler) releaseIdempotencyLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	if lockKey := c.GetString("idempotency_lock_key"); lockKey != "" {
		_ = h.rdb.Del(c.Request.Context(), lockKey).Err()
	}
}
