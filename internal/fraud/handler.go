package fraud

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/carbon-ledger/pkg/common"
	"github.com/richxcame/carbon-ledger/pkg/middleware"
	"github.com/richxcame/carbon-ledger/pkg/pagination"
)

// PersistedHeader is set to "false" on analyze responses whose audit write failed
const PersistedHeader = "X-Fraud-Persisted"

// Handler handles HTTP requests for fraud analysis and review
type Handler struct {
	service *Service
}

// NewHandler creates a new fraud handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// AnalyzeRegistration scores a new registration and stores the result
// POST /api/v1/fraud/analyze
func (h *Handler) AnalyzeRegistration(c *gin.Context) {
	var user UserSnapshot
	if !middleware.ValidateAndBind(c, &user) {
		return
	}

	result, err := h.service.AnalyzeRegistration(c.Request.Context(), user)
	if err != nil {
		// the decision stands; only the audit write is missing
		c.Header(PersistedHeader, "false")
		common.SuccessResponseWithStatus(c, http.StatusOK, result, Summary(result))
		return
	}

	c.Header(PersistedHeader, "true")
	common.SuccessResponseWithStatus(c, http.StatusCreated, result, Summary(result))
}

// ScoreRegistration scores a registration without storing anything
// POST /api/v1/fraud/score
func (h *Handler) ScoreRegistration(c *gin.Context) {
	var user UserSnapshot
	if !middleware.ValidateAndBind(c, &user) {
		return
	}

	result := h.service.Evaluate(user)
	common.SuccessResponse(c, gin.H{
		"risk_score":     result.RiskScore,
		"risk_level":     result.RiskLevel,
		"is_fraudulent":  result.IsFraudulent,
		"recommendation": result.Recommendation,
		"indicators":     result.Indicators,
	})
}

// ListResults returns stored results, optionally for one risk level
// GET /api/v1/fraud/results?risk_level=HIGH&limit=20&offset=0
func (h *Handler) ListResults(c *gin.Context) {
	var level RiskLevel
	if raw := c.Query("risk_level"); raw != "" {
		parsed, err := ParseRiskLevel(strings.ToUpper(raw))
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		level = parsed
	}

	params := pagination.ParseParams(c)
	results, total, err := h.service.ListResults(c.Request.Context(), level, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list fraud results")
		return
	}

	common.SuccessResponseWithMeta(c, results, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// ListFraudulent returns results with a positive fraud verdict
// GET /api/v1/fraud/results/fraudulent
func (h *Handler) ListFraudulent(c *gin.Context) {
	params := pagination.ParseParams(c)
	results, total, err := h.service.ListFraudulent(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list fraudulent results")
		return
	}

	common.SuccessResponseWithMeta(c, results, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// ListRequiringReview returns the manual review queue
// GET /api/v1/fraud/results/review
func (h *Handler) ListRequiringReview(c *gin.Context) {
	params := pagination.ParseParams(c)
	results, total, err := h.service.ListRequiringReview(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list results requiring review")
		return
	}

	common.SuccessResponseWithMeta(c, results, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetResult returns one stored result
// GET /api/v1/fraud/results/:id
func (h *Handler) GetResult(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid result id")
	if !ok {
		return
	}

	result, err := h.service.GetResult(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get fraud result")
		return
	}

	common.SuccessResponse(c, result)
}

// GetLatestForUser returns a user's most recent result
// GET /api/v1/fraud/users/:id/latest
func (h *Handler) GetLatestForUser(c *gin.Context) {
	userID, ok := parseID(c, "id", "invalid user id")
	if !ok {
		return
	}

	result, err := h.service.GetLatestForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get fraud result")
		return
	}

	common.SuccessResponse(c, result)
}

// ListUserHistory returns every result for a user, newest first
// GET /api/v1/fraud/users/:id/results
func (h *Handler) ListUserHistory(c *gin.Context) {
	userID, ok := parseID(c, "id", "invalid user id")
	if !ok {
		return
	}

	params := pagination.ParseParams(c)
	results, total, err := h.service.ListUserHistory(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list user results")
		return
	}

	common.SuccessResponseWithMeta(c, results, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// OverrideResult applies a reviewer's score correction
// PUT /api/v1/fraud/results/:id
func (h *Handler) OverrideResult(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid result id")
	if !ok {
		return
	}

	var req OverrideRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	result, err := h.service.OverrideResult(c.Request.Context(), id, reviewer(c), req)
	if err != nil {
		respondError(c, err, "failed to override fraud result")
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusOK, result, "fraud result overridden")
}

// DeleteResult removes a stored result
// DELETE /api/v1/fraud/results/:id
func (h *Handler) DeleteResult(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid result id")
	if !ok {
		return
	}

	if err := h.service.DeleteResult(c.Request.Context(), id); err != nil {
		respondError(c, err, "failed to delete fraud result")
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusOK, nil, "fraud result deleted")
}

// GetStatistics returns dashboard counters
// GET /api/v1/fraud/statistics
func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.service.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to get fraud statistics")
		return
	}

	common.SuccessResponse(c, stats)
}

// RegisterRoutes registers fraud routes. Scoring is open to any authenticated
// caller; everything that reads or changes stored results requires the admin role.
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	api := r.Group("/api/v1/fraud")
	api.Use(middleware.AuthMiddleware(jwtSecret))
	{
		api.POST("/analyze", h.AnalyzeRegistration)
		api.POST("/score", h.ScoreRegistration)
	}

	admin := api.Group("")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("/results", h.ListResults)
		admin.GET("/results/fraudulent", h.ListFraudulent)
		admin.GET("/results/review", h.ListRequiringReview)
		admin.GET("/results/:id", h.GetResult)
		admin.PUT("/results/:id", h.OverrideResult)
		admin.DELETE("/results/:id", h.DeleteResult)
		admin.GET("/users/:id/latest", h.GetLatestForUser)
		admin.GET("/users/:id/results", h.ListUserHistory)
		admin.GET("/statistics", h.GetStatistics)
	}
}

func parseID(c *gin.Context, param, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

func reviewer(c *gin.Context) string {
	if email := middleware.GetUserEmail(c); email != "" {
		return email
	}
	if id, ok := middleware.GetUserID(c); ok {
		return fmt.Sprintf("user:%d", id)
	}
	return ""
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
