package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsales "github.com/ims/backend/internal/application/sales"
	"github.com/ims/backend/internal/interfaces/http/middleware"
)

// DeliveryHandler handles delivery-related API endpoints
type DeliveryHandler struct {
	BaseHandler
	deliveryService *appsales.DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler
func NewDeliveryHandler(deliveryService *appsales.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
	}
}

// Create attaches a delivery to an existing sale
func (h *DeliveryHandler) Create(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	var req appsales.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	delivery, err := h.deliveryService.Create(c.Request.Context(), branchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, delivery)
}

// SetStatus moves a sale's delivery to a new status. Depending on the
// transition this deducts or restores the sale's stock in the same
// transaction that writes the status.
func (h *DeliveryHandler) SetStatus(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("saleId"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	var req appsales.SetDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	delivery, err := h.deliveryService.SetStatus(c.Request.Context(), branchID, saleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, delivery)
}

// Get retrieves the delivery of a sale
func (h *DeliveryHandler) Get(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("saleId"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	delivery, err := h.deliveryService.Get(c.Request.Context(), branchID, saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, delivery)
}

// List retrieves the branch's deliveries
func (h *DeliveryHandler) List(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	filter := parseFilter(c)

	deliveries, err := h.deliveryService.List(c.Request.Context(), branchID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, deliveries)
}
