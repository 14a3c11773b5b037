package handlers

import (
	"net/http"

	"bankbang/internal/middleware"
	"bankbang/internal/models"
	"bankbang/internal/services"
	"bankbang/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type InteractionHandler struct {
	*BaseHandler
	interactionService services.InteractionService
}

func NewInteractionHandler(base *BaseHandler, interactionService services.InteractionService) *InteractionHandler {
	return &InteractionHandler{
		BaseHandler:        base,
		interactionService: interactionService,
	}
}

func (h *InteractionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	interactions := rg.Group("/interactions/:type/:id")
	{
		interactions.GET("", middleware.OptionalAuth(), h.State)
		interactions.POST("/like", middleware.AuthMiddleware(), h.ToggleLike)
		interactions.POST("/collect", middleware.AuthMiddleware(), h.ToggleCollect)
	}

	me := rg.Group("/me")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("/collections", h.ListCollections)
	}
}

// ToggleLike godoc
// @Summary Поставить или снять лайк
// @Tags interactions
// @Produce json
// @Param type path string true "job, experience, referral"
// @Param id path string true "ID объекта"
// @Success 200 {object} dto.ToggleResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /interactions/{type}/{id}/like [post]
func (h *InteractionHandler) ToggleLike(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.interactionService.ToggleLike(c.Request.Context(), h.GetDB(c), userID,
		models.TargetType(c.Param("type")), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InteractionHandler) ToggleCollect(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.interactionService.ToggleCollect(c.Request.Context(), h.GetDB(c), userID,
		models.TargetType(c.Param("type")), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InteractionHandler) State(c *gin.Context) {
	viewerID, _ := h.Viewer(c)
	resp, err := h.interactionService.State(c.Request.Context(), h.GetDB(c), viewerID,
		models.TargetType(c.Param("type")), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InteractionHandler) ListCollections(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var query dto.ListCollectionsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.interactionService.ListCollections(c.Request.Context(), h.GetDB(c), userID, query.Type, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
