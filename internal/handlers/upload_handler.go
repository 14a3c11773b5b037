package handlers

import (
	"net/http"
	"strings"

	"bankbang/internal/middleware"
	"bankbang/internal/services"
	"bankbang/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// ============================================
// UPLOAD HANDLER
// ============================================

type UploadHandler struct {
	*BaseHandler
	uploadService services.UploadService
}

func NewUploadHandler(base *BaseHandler, uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   base,
		uploadService: uploadService,
	}
}

// ============================================
// ROUTES
// ============================================

func (h *UploadHandler) RegisterRoutes(r *gin.RouterGroup) {
	uploads := r.Group("/uploads")
	uploads.Use(middleware.AuthMiddleware())
	{
		uploads.POST("/presign", h.Presign)
		uploads.POST("/:id/confirm", h.Confirm)
		// только для локального хранилища
		uploads.PUT("/local/*key", h.PutLocal)
	}

	r.GET("/files/*key", h.ServeFile)
}

// ============================================
// HANDLERS
// ============================================

// Presign godoc
// @Summary Получить URL для прямой загрузки
// @Description Клиент делает PUT на upload_url с заголовками из headers, затем вызывает confirm
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body dto.PresignRequest true "Назначение, тип и размер файла"
// @Success 201 {object} dto.PresignResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /uploads/presign [post]
func (h *UploadHandler) Presign(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.PresignRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.uploadService.CreatePresigned(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UploadHandler) Confirm(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	upload, err := h.uploadService.Confirm(c.Request.Context(), h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *UploadHandler) PutLocal(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	err := h.uploadService.PutLocal(c.Request.Context(), h.GetDB(c), userID, key, c.ContentType(), c.Request.Body)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeFile отдает файл из локального хранилища
func (h *UploadHandler) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	rc, contentType, err := h.uploadService.OpenLocal(c.Request.Context(), key)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
