package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
)

type ActivityHandler struct {
	BaseHandler
	service services.ActivityService
}

func NewActivityHandler(service services.ActivityService, logger utils.Logger, production bool) *ActivityHandler {
	return &ActivityHandler{
		BaseHandler: NewBaseHandler(logger, ModuleActivity, production),
		service:     service,
	}
}

func (h *ActivityHandler) ListActivities(c *gin.Context) {
	page, pageSize := response.PageParams(c)
	filters := repositories.ActivityFilters{
		Search:    c.Query("search"),
		Type:      optionalQuery(c, "type"),
		Limit:     pageSize,
		Offset:    response.Offset(page, pageSize),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if status := optionalQuery(c, "status"); status != nil {
		s := models.ActivityStatus(*status)
		filters.Status = &s
	}

	activities, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		h.handleError(c, err, "获取活动列表失败")
		return
	}
	h.respondPage(c, activities, total, page, pageSize)
}

func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	activity, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "获取活动详情失败")
		return
	}
	response.Success(c, http.StatusOK, activity, "")
}

func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	h.LogRequest(c, "Creating activity")

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req services.CreateActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	activity, err := h.service.Create(c.Request.Context(), &req, identity.UserID)
	if err != nil {
		h.handleError(c, err, "创建活动失败")
		return
	}
	response.Success(c, http.StatusCreated, activity, "创建成功")
}

func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	activity, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err, "更新活动失败")
		return
	}
	response.Success(c, http.StatusOK, activity, "更新成功")
}

// UpdateStatus handles PUT /api/activities/:id/status
func (h *ActivityHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateActivityStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	activity, err := h.service.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err, "更新活动状态失败")
		return
	}
	response.Success(c, http.StatusOK, activity, "状态更新成功")
}

func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "删除活动失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "删除成功")
}

func (h *ActivityHandler) GetStatistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "获取活动统计失败")
		return
	}
	response.Success(c, http.StatusOK, stats, "")
}
