package handlers

import (
	"net/http"

	"bankbang/internal/auth"
	"bankbang/internal/middleware"
	"bankbang/internal/services"

	"github.com/gin-gonic/gin"
)

type CompanyHandler struct {
	*BaseHandler
	companyService services.CompanyService
}

func NewCompanyHandler(base *BaseHandler, companyService services.CompanyService) *CompanyHandler {
	return &CompanyHandler{
		BaseHandler:    base,
		companyService: companyService,
	}
}

func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	companies := rg.Group("/companies")
	{
		companies.GET("", h.List)
		companies.GET("/:id", h.Get)
		companies.POST("/:id/logo/rehost",
			middleware.AuthMiddleware(), middleware.RequirePermission(auth.PermCompaniesAdmin), h.RehostLogo)
	}
}

func (h *CompanyHandler) List(c *gin.Context) {
	page, pageSize := ParsePagination(c)
	resp, err := h.companyService.List(c.Request.Context(), h.GetDB(c), c.Query("q"), page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.companyService.Get(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) RehostLogo(c *gin.Context) {
	result, err := h.companyService.RehostLogo(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
