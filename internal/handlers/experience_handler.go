package handlers

import (
	"net/http"

	"bankbang/internal/middleware"
	"bankbang/internal/services"
	"bankbang/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ExperienceHandler struct {
	*BaseHandler
	experienceService services.ExperienceService
}

func NewExperienceHandler(base *BaseHandler, experienceService services.ExperienceService) *ExperienceHandler {
	return &ExperienceHandler{
		BaseHandler:       base,
		experienceService: experienceService,
	}
}

func (h *ExperienceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	experiences := rg.Group("/experiences")
	{
		experiences.GET("", h.List)
		experiences.GET("/:id", middleware.OptionalAuth(), h.Get)

		protected := experiences.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/mine", h.ListMine)
			protected.POST("", h.Create)
			protected.PUT("/:id", h.Update)
			protected.DELETE("/:id", h.Delete)
			protected.POST("/:id/publish", h.Publish)
			// права редактора проверяет сервис
			protected.POST("/:id/hide", h.Hide)
		}
	}
}

func (h *ExperienceHandler) List(c *gin.Context) {
	var query dto.ListExperiencesQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.experienceService.List(c.Request.Context(), h.GetDB(c), &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ExperienceHandler) Get(c *gin.Context) {
	viewerID, role := h.Viewer(c)
	resp, err := h.experienceService.Get(c.Request.Context(), h.GetDB(c), c.Param("id"), viewerID, role)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ExperienceHandler) ListMine(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.experienceService.ListMine(c.Request.Context(), h.GetDB(c), userID, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ExperienceHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.CreateExperienceRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	_, role := h.Viewer(c)
	exp, err := h.experienceService.Create(c.Request.Context(), h.GetDB(c), userID, role, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp)
}

func (h *ExperienceHandler) Update(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateExperienceRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	_, role := h.Viewer(c)
	exp, err := h.experienceService.Update(c.Request.Context(), h.GetDB(c), c.Param("id"), userID, role, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (h *ExperienceHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	_, role := h.Viewer(c)
	if err := h.experienceService.Delete(c.Request.Context(), h.GetDB(c), c.Param("id"), userID, role); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ExperienceHandler) Publish(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	_, role := h.Viewer(c)
	exp, err := h.experienceService.Publish(c.Request.Context(), h.GetDB(c), c.Param("id"), userID, role)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (h *ExperienceHandler) Hide(c *gin.Context) {
	_, role := h.Viewer(c)
	exp, err := h.experienceService.Hide(c.Request.Context(), h.GetDB(c), c.Param("id"), role)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}
