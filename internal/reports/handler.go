package reports

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/middleware"
	"github.com/richxcame/upi-guard/pkg/validation"
)

// Handler handles HTTP requests for community reports
type Handler struct {
	service *Service
}

// NewHandler creates a new reports handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SubmitReport files a new community report
func (h *Handler) SubmitReport(c *gin.Context) {
	var req SubmitReportRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	report, err := h.service.SubmitReport(c.Request.Context(), req)
	if err != nil {
		var valErr *validation.ValidationError
		if errors.As(err, &valErr) {
			middleware.RespondWithValidationError(c, err)
			return
		}
		common.HandleServiceError(c, err, "failed to submit report")
		return
	}

	common.CreatedResponse(c, report)
}

// ListRecentReports returns the community alerts list
func (h *Handler) ListRecentReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	reports, err := h.service.ListRecentReports(c.Request.Context(), limit)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list reports")
		return
	}

	common.SuccessResponse(c, reports)
}

// ListReportsForUPI returns the reports filed against one UPI id
func (h *Handler) ListReportsForUPI(c *gin.Context) {
	reports, err := h.service.ListReportsForUPI(c.Request.Context(), c.Param("upi_id"))
	if err != nil {
		common.HandleServiceError(c, err, "failed to list reports")
		return
	}

	common.SuccessResponse(c, reports)
}

// DeleteReport removes a report (admin only)
func (h *Handler) DeleteReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid report ID")
		return
	}

	if err := h.service.DeleteReport(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		common.HandleServiceError(c, err, "failed to delete report")
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the public report routes. submitLimit guards
// report creation.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, submitLimit gin.HandlerFunc) {
	if submitLimit != nil {
		rg.POST("/reports", submitLimit, h.SubmitReport)
	} else {
		rg.POST("/reports", h.SubmitReport)
	}
	rg.GET("/reports", h.ListRecentReports)
	rg.GET("/upi/:upi_id/reports", h.ListReportsForUPI)
}

// RegisterAdminRoutes registers moderation routes on an authenticated group
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.DELETE("/reports/:id", h.DeleteReport)
}
