package apperrors

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler renders errors as JSON. Debug keeps messages of non-AppErrors.
type GinErrorHandler struct {
	Debug bool
}

var defaultHandler = &GinErrorHandler{}

// SetDebug toggles exposing internal error text; enabled in development.
func SetDebug(debug bool) {
	defaultHandler.Debug = debug
}

func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
		if h.Debug {
			appErr = appErr.WithDetails(err.Error())
		}
	}

	if appErr.HTTPCode >= 500 {
		slog.ErrorContext(c.Request.Context(), "server error", "error", appErr.Error(), "path", c.Request.URL.Path)
	}

	if appErr.Code == CodeTooManyRequests {
		if d, ok := appErr.Details.(map[string]int); ok {
			c.Header("Retry-After", strconv.Itoa(d["retry_after_seconds"]))
		}
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

func HandleError(c *gin.Context, err error) {
	defaultHandler.HandleGinError(c, err)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
