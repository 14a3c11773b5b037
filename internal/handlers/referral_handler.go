package handlers

import (
	"net/http"

	"bankbang/internal/middleware"
	"bankbang/internal/services"
	"bankbang/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	*BaseHandler
	referralService services.ReferralService
}

func NewReferralHandler(base *BaseHandler, referralService services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		BaseHandler:     base,
		referralService: referralService,
	}
}

func (h *ReferralHandler) RegisterRoutes(rg *gin.RouterGroup) {
	referrals := rg.Group("/referrals")
	{
		referrals.GET("", h.List)
		referrals.GET("/:id", middleware.OptionalAuth(), h.Get)
	}
}

func (h *ReferralHandler) List(c *gin.Context) {
	var query dto.ListReferralsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.referralService.List(c.Request.Context(), h.GetDB(c), &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReferralHandler) Get(c *gin.Context) {
	viewerID, _ := h.Viewer(c)
	resp, err := h.referralService.Get(c.Request.Context(), h.GetDB(c), c.Param("id"), viewerID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
