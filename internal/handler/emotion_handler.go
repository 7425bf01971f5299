package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/emotion"
	"github.com/jengzang/moodmap-backend-go/internal/middleware"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// EmotionHandler handles HTTP requests for emotion entries
type EmotionHandler struct {
	submissions *service.SubmissionService
	entries     *service.EntryService
	catalog     *emotion.Catalog
}

// NewEmotionHandler creates a new emotion handler
func NewEmotionHandler(submissions *service.SubmissionService, entries *service.EntryService, catalog *emotion.Catalog) *EmotionHandler {
	return &EmotionHandler{
		submissions: submissions,
		entries:     entries,
		catalog:     catalog,
	}
}

// Submit handles POST /api/v1/emotions
func (h *EmotionHandler) Submit(c *gin.Context) {
	var req models.SubmitEmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	entry, err := h.submissions.Submit(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Code:    0,
		Message: "success",
		Data:    entry,
	})
}

// ListMine handles GET /api/v1/emotions/mine
func (h *EmotionHandler) ListMine(c *gin.Context) {
	var filter models.EntryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.entries.List(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// Delete handles DELETE /api/v1/emotions/:id
func (h *EmotionHandler) Delete(c *gin.Context) {
	if err := h.entries.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, nil)
}

// Catalog handles GET /api/v1/emotions/catalog
func (h *EmotionHandler) Catalog(c *gin.Context) {
	response.Success(c, gin.H{
		"emotions": h.catalog.Descriptors(),
	})
}
