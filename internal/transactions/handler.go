package transactions

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/upi-guard/pkg/common"
)

// Handler handles HTTP requests for transaction history
type Handler struct {
	service *Service
}

// NewHandler creates a new transactions handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetHistory returns recent transactions for a UPI id
func (h *Handler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.service.GetHistory(c.Request.Context(), c.Param("upi_id"), limit)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get transaction history")
		return
	}

	common.SuccessResponse(c, entries)
}

// RegisterRoutes registers transaction routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/upi/:upi_id/transactions", h.GetHistory)
}
