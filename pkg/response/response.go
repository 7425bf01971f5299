package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *gin.Context, message string) {
	Error(c, 403, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, 404, message)
}

// TooManyRequests sends a 429 rate limited response
func TooManyRequests(c *gin.Context, message string) {
	Error(c, 429, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// HandleError maps a domain error onto the HTTP taxonomy: validation 400,
// rate limit 429, not found 404, everything else 500.
func HandleError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var rateLimitErr *models.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		BadRequest(c, validationErr.Error())
	case errors.As(err, &rateLimitErr):
		TooManyRequests(c, rateLimitErr.Error())
	case errors.Is(err, models.ErrEntryNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		Unauthorized(c, err.Error())
	default:
		InternalError(c, "internal error")
	}
}
