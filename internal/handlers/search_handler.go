package handlers

import (
	"net/http"

	"bankbang/internal/services"
	"bankbang/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	*BaseHandler
	searchService services.SearchService
}

func NewSearchHandler(base *BaseHandler, searchService services.SearchService) *SearchHandler {
	return &SearchHandler{
		BaseHandler:   base,
		searchService: searchService,
	}
}

func (h *SearchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.Search)
}

// Search godoc
// @Summary Поиск по вакансиям, опыту и рефералам
// @Tags search
// @Produce json
// @Param q query string true "Запрос"
// @Param types query string false "job,experience,referral"
// @Param limit query int false "Результатов в каждой секции (max 20)"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	var query dto.SearchQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	types, err := services.ParseSearchTypes(query.Types)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	resp, err := h.searchService.Search(c.Request.Context(), h.GetDB(c), query.Q, types, query.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
