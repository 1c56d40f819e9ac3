package checks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/middleware"
	"github.com/richxcame/upi-guard/pkg/pagination"
)

// Handler handles HTTP requests for UPI checks
type Handler struct {
	service *Service
}

// NewHandler creates a new checks handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CheckUPI classifies and stores a UPI id
func (h *Handler) CheckUPI(c *gin.Context) {
	var req CheckRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	result, err := h.service.CheckUPI(c.Request.Context(), req.Value())
	if err != nil {
		common.HandleServiceError(c, err, "failed to check UPI ID")
		return
	}

	common.CreatedResponse(c, result)
}

// Classify returns a verdict without storing it. Malformed ids still get
// a 200 with status "invalid".
func (h *Handler) Classify(c *gin.Context) {
	var req CheckRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	common.SuccessResponse(c, h.service.Classify(req.Value()))
}

// GetCheck returns one check
func (h *Handler) GetCheck(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	check, err := h.service.GetCheck(c.Request.Context(), id)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get check")
		return
	}

	common.SuccessResponse(c, check)
}

// GetCheckDetails returns the result page payload
func (h *Handler) GetCheckDetails(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	details, err := h.service.GetCheckDetails(c.Request.Context(), id)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get check details")
		return
	}

	common.SuccessResponse(c, details)
}

// GetRecentChecks returns the newest checks
func (h *Handler) GetRecentChecks(c *gin.Context) {
	params := pagination.ParseParamsWithLimits(c, DefaultRecentLimit, MaxRecentLimit)

	checks, err := h.service.GetRecentChecks(c.Request.Context(), params.Limit)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get recent checks")
		return
	}

	common.SuccessResponse(c, checks)
}

// ListChecks returns paginated check history
func (h *Handler) ListChecks(c *gin.Context) {
	params := pagination.ParseParams(c)

	checks, total, err := h.service.ListChecks(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list checks")
		return
	}

	common.SuccessResponseWithMeta(c, checks, pagination.BuildMeta(params.Limit, params.Offset, total))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid check ID")
		return uuid.Nil, false
	}
	return id, true
}

// RegisterRoutes registers check routes. checkLimit guards the routes that
// run the classifier.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, checkLimit gin.HandlerFunc) {
	guarded := []gin.HandlerFunc{}
	if checkLimit != nil {
		guarded = append(guarded, checkLimit)
	}

	checks := rg.Group("/checks")
	{
		checks.POST("", append(guarded, h.CheckUPI)...)
		checks.GET("", h.ListChecks)
		checks.GET("/recent", h.GetRecentChecks)
		checks.GET("/:id", h.GetCheck)
		checks.GET("/:id/details", h.GetCheckDetails)
	}

	rg.POST("/classify", append(guarded, h.Classify)...)
}
