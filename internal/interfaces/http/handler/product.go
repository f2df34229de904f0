package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinventory "github.com/ims/backend/internal/application/inventory"
	"github.com/ims/backend/internal/infrastructure/forecast"
	"github.com/ims/backend/internal/infrastructure/logger"
	"github.com/ims/backend/internal/interfaces/http/middleware"

	"go.uber.org/zap"
)

// ProductHandler handles product and stock related API endpoints
type ProductHandler struct {
	BaseHandler
	inventoryService *appinventory.InventoryService
	forecaster       forecast.Forecaster
}

// NewProductHandler creates a new ProductHandler. The forecaster is optional;
// without one the forecast endpoint returns history only.
func NewProductHandler(inventoryService *appinventory.InventoryService, forecaster forecast.Forecaster) *ProductHandler {
	return &ProductHandler{
		inventoryService: inventoryService,
		forecaster:       forecaster,
	}
}

// ProductForecastResponse combines consumption history with projected demand
type ProductForecastResponse struct {
	ProductID uuid.UUID                       `json:"product_id"`
	History   []appinventory.ConsumptionPoint `json:"history"`
	Forecast  []forecast.Point                `json:"forecast,omitempty"`
}

// Create creates a new product, optionally with opening stock
func (h *ProductHandler) Create(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	var req appinventory.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	product, err := h.inventoryService.CreateProduct(c.Request.Context(), branchID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, product)
}

// Get retrieves a product by ID
func (h *ProductHandler) Get(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	product, err := h.inventoryService.GetProduct(c.Request.Context(), branchID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}

// List retrieves products of the branch
func (h *ProductHandler) List(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	filter := parseFilter(c)

	products, err := h.inventoryService.ListProducts(c.Request.Context(), branchID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, products)
}

// AddStock takes in a new stock batch for a product
func (h *ProductHandler) AddStock(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req appinventory.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	batch, err := h.inventoryService.AddStock(c.Request.Context(), branchID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, batch)
}

// ListBatches retrieves the stock batches of a product, newest intake first
func (h *ProductHandler) ListBatches(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	batches, err := h.inventoryService.ListBatches(c.Request.Context(), branchID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

// StockLevels reports current availability, optionally for selected products
func (h *ProductHandler) StockLevels(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	var productIDs []uuid.UUID
	for _, raw := range c.QueryArray("product_id") {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		productIDs = append(productIDs, id)
	}

	levels, err := h.inventoryService.GetStockLevels(c.Request.Context(), branchID, productIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, levels)
}

// Forecast returns a product's consumption history together with projected
// demand. A failing forecast service degrades to history only.
func (h *ProductHandler) Forecast(c *gin.Context) {
	branchID, err := getBranchID(c)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	ctx := c.Request.Context()

	history, err := h.inventoryService.ConsumptionHistory(ctx, branchID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := ProductForecastResponse{
		ProductID: productID,
		History:   history,
	}

	if h.forecaster != nil && len(history) > 0 {
		points := make([]forecast.Point, 0, len(history))
		for _, p := range history {
			points = append(points, forecast.Point{Date: p.Date, Quantity: p.Quantity})
		}
		predicted, err := h.forecaster.Forecast(ctx, points)
		if err != nil {
			logger.FromContext(ctx).Warn("Forecast service unavailable",
				zap.String("product_id", productID.String()),
				zap.Error(err),
			)
		} else {
			resp.Forecast = predicted
		}
	}

	h.Success(c, resp)
}
