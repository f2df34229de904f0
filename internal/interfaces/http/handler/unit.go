package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ims/backend/internal/domain/unit"
)

// UnitHandler handles unit conversion API endpoints
type UnitHandler struct {
	BaseHandler
	registry *unit.Registry
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(registry *unit.Registry) *UnitHandler {
	return &UnitHandler{
		registry: registry,
	}
}

// UnitResponse represents a unit conversion in API responses
type UnitResponse struct {
	DisplayUnit string `json:"display_unit"`
	BaseUnit    string `json:"base_unit"`
	Factor      int64  `json:"factor"`
	UnitType    string `json:"unit_type"`
}

// List returns the currently loaded unit conversion table
func (h *UnitHandler) List(c *gin.Context) {
	conversions := h.registry.Table().Units()

	units := make([]UnitResponse, 0, len(conversions))
	for _, conv := range conversions {
		units = append(units, UnitResponse{
			DisplayUnit: conv.DisplayUnit,
			BaseUnit:    conv.BaseUnit,
			Factor:      conv.Factor,
			UnitType:    conv.UnitType,
		})
	}

	h.Success(c, units)
}

// Reload replaces the conversion table with a fresh load from its source.
// On failure the previous table stays active.
func (h *UnitHandler) Reload(c *gin.Context) {
	if err := h.registry.Reload(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"units_loaded": h.registry.Table().Len()})
}
