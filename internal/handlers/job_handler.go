package handlers

import (
	"net/http"

	"bankbang/internal/auth"
	"bankbang/internal/middleware"
	"bankbang/internal/services"
	"bankbang/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	*BaseHandler
	jobService services.JobService
}

func NewJobHandler(base *BaseHandler, jobService services.JobService) *JobHandler {
	return &JobHandler{
		BaseHandler: base,
		jobService:  jobService,
	}
}

func (h *JobHandler) RegisterRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/hot-companies", h.HotCompanies)
		jobs.GET("/:id", middleware.OptionalAuth(), h.GetJob)

		editor := jobs.Group("")
		editor.Use(middleware.AuthMiddleware(), middleware.RequirePermission(auth.PermJobsWrite))
		{
			editor.POST("", h.CreateJob)
			editor.PUT("/:id", h.UpdateJob)
			editor.DELETE("/:id", h.DeleteJob)
		}
	}
}

// ListJobs godoc
// @Summary Список вакансий
// @Description По умолчанию только открытые; status=all включает закрытые
// @Tags jobs
// @Produce json
// @Param q query string false "Ключевое слово"
// @Param city query string false "Город"
// @Param category query string false "campus, intern, social"
// @Param company query string false "Компания (точное имя)"
// @Param status query string false "open, closed, all"
// @Param tag query string false "Тег"
// @Param sort query string false "latest, deadline, popular"
// @Param page query int false "Страница"
// @Param page_size query int false "Размер страницы (max 100)"
// @Success 200 {object} dto.PaginatedResponse
// @Router /jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	var query dto.ListJobsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	page, pageSize := ParsePagination(c)

	resp, err := h.jobService.ListJobs(c.Request.Context(), h.GetDB(c), &query, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) HotCompanies(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", 10)
	resp, err := h.jobService.HotCompanies(c.Request.Context(), h.GetDB(c), limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetJob godoc
// @Summary Вакансия
// @Description Для авторизованных включает viewer.liked / viewer.collected
// @Tags jobs
// @Produce json
// @Param id path string true "ID вакансии"
// @Success 200 {object} dto.JobDetailResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	viewerID, _ := h.Viewer(c)
	resp, err := h.jobService.GetJob(c.Request.Context(), h.GetDB(c), c.Param("id"), viewerID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	job, err := h.jobService.CreateJob(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req dto.UpdateJobRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	job, err := h.jobService.UpdateJob(c.Request.Context(), h.GetDB(c), c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.jobService.DeleteJob(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
