package knowledgebase

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-payaudit/internal/shared/apperror"
	"go-payaudit/internal/shared/response"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("knowledgebase.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("knowledgebase.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("knowledgebase request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) BeginExtraction(c *gin.Context) {
	firmID := c.GetString("firm_id")
	documentID := c.Param("id")
	h.logger.Debug("http begin extraction",
		zap.String("firm_id", firmID),
		zap.String("document_id", documentID),
	)

	var req BeginExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	result, err := h.service.BeginExtraction(c.Request.Context(), firmID, documentID, req.InstructionHint)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapToExtractionResponse(result))
}

func (h *Handler) Publish(c *gin.Context) {
	firmID := c.GetString("firm_id")
	documentID := c.Param("id")

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	result, err := h.service.ValidateAndPublish(
		c.Request.Context(), firmID, documentID, req.Corrections, req.Reviewer,
	)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, PublishResponse{
		DocumentID:     result.DocumentID,
		PublishedCount: result.PublishedCount,
		SkippedCount:   result.SkippedCount,
		RuleIDs:        result.RuleIDs,
	})
}

func (h *Handler) LookupRules(c *gin.Context) {
	firmID := c.GetString("firm_id")
	parameterName := c.Query("parameter")

	var companyID *string
	if v := c.Query("company_id"); v != "" {
		companyID = &v
	}

	rules, err := h.service.LookupRules(c.Request.Context(), parameterName, firmID, companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapToRuleResponses(rules))
}
