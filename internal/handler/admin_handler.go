package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/aggregation"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// AdminHandler exposes the maintenance operations: direct recompute and
// retention sweep. Both are idempotent, so schedulers may invoke them
// redundantly.
type AdminHandler struct {
	engine  *aggregation.Engine
	sweeper *service.Sweeper
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(engine *aggregation.Engine, sweeper *service.Sweeper) *AdminHandler {
	return &AdminHandler{engine: engine, sweeper: sweeper}
}

// Recompute handles POST /api/v1/admin/cells/:cellID/recompute
func (h *AdminHandler) Recompute(c *gin.Context) {
	cellID := c.Param("cellID")
	if !spatial.IsValidCell(cellID) {
		response.BadRequest(c, "not a valid cell identifier")
		return
	}

	aggregate, err := h.engine.Recompute(c.Request.Context(), cellID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, aggregate)
}

// Sweep handles POST /api/v1/admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	removed, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"removed": removed})
}
