package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsales "github.com/ims/backend/internal/application/sales"
	"github.com/ims/backend/internal/interfaces/http/middleware"
)

// SaleHandler handles sale-related API endpoints
type SaleHandler struct {
	BaseHandler
	saleService *appsales.SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService *appsales.SaleService) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// Create records a sale and deducts its stock atomically
func (h *SaleHandler) Create(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	var req appsales.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	sale, err := h.saleService.Create(c.Request.Context(), branchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, sale)
}

// Cancel cancels a sale and restores its deducted stock
func (h *SaleHandler) Cancel(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	sale, err := h.saleService.Cancel(c.Request.Context(), branchID, saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// Get retrieves a sale with its lines
func (h *SaleHandler) Get(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	sale, err := h.saleService.Get(c.Request.Context(), branchID, saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// List retrieves the branch's sales
func (h *SaleHandler) List(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	filter := parseFilter(c)

	sales, err := h.saleService.List(c.Request.Context(), branchID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sales)
}
