package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinventory "github.com/ims/backend/internal/application/inventory"
)

// AlertHandler handles inventory alert API endpoints
type AlertHandler struct {
	BaseHandler
	inventoryService *appinventory.InventoryService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(inventoryService *appinventory.InventoryService) *AlertHandler {
	return &AlertHandler{
		inventoryService: inventoryService,
	}
}

// List retrieves the branch's open alerts, newest first
func (h *AlertHandler) List(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	alerts, err := h.inventoryService.ListAlerts(c.Request.Context(), branchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alerts)
}

// Acknowledge marks an alert as seen
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID format")
		return
	}

	if err := h.inventoryService.AcknowledgeAlert(c.Request.Context(), alertID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
