package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/middleware"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// MissionHandler handles HTTP requests for the seasonal missions overlay
type MissionHandler struct {
	missions *service.MissionService
}

// NewMissionHandler creates a new mission handler
func NewMissionHandler(missions *service.MissionService) *MissionHandler {
	return &MissionHandler{missions: missions}
}

// GetProgress handles GET /api/v1/missions
func (h *MissionHandler) GetProgress(c *gin.Context) {
	progress, err := h.missions.Progress(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, progress)
}
