package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// MapHandler handles HTTP requests for map visualization data
type MapHandler struct {
	maps *service.MapService
}

// NewMapHandler creates a new map handler
func NewMapHandler(maps *service.MapService) *MapHandler {
	return &MapHandler{maps: maps}
}

// GetCellAggregate handles GET /api/v1/map/cells/:cellID
// Returns data: null when the cell has no live entries.
func (h *MapHandler) GetCellAggregate(c *gin.Context) {
	aggregate, err := h.maps.GetCellAggregate(c.Request.Context(), c.Param("cellID"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, aggregate)
}

// GetTiles handles GET /api/v1/map/tiles
func (h *MapHandler) GetTiles(c *gin.Context) {
	var filter models.TileFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	tiles, err := h.maps.GetTiles(c.Request.Context(), filter)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, tiles)
}
