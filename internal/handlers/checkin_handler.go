package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
)

// CheckinHandler serves the activity check-in API. Lists are always empty; see services.CheckinService.
type CheckinHandler struct {
	BaseHandler
	service services.CheckinService
}

func NewCheckinHandler(service services.CheckinService, logger utils.Logger, production bool) *CheckinHandler {
	return &CheckinHandler{
		BaseHandler: NewBaseHandler(logger, ModuleCheckin, production),
		service:     service,
	}
}

func (h *CheckinHandler) ListCheckins(c *gin.Context) {
	page, pageSize := response.PageParams(c)
	h.respondPage(c, nil, 0, page, pageSize)
}

func (h *CheckinHandler) ListByActivity(c *gin.Context) {
	if _, ok := h.parseIDParam(c, "activityId"); !ok {
		return
	}
	page, pageSize := response.PageParams(c)
	h.respondPage(c, nil, 0, page, pageSize)
}

func (h *CheckinHandler) CreateCheckin(c *gin.Context) {
	body := map[string]interface{}{}
	if !h.bindJSON(c, &body) {
		return
	}

	record, err := h.service.Create(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err, "签到失败")
		return
	}
	response.Success(c, http.StatusCreated, record, "签到成功")
}

func (h *CheckinHandler) BatchCheckin(c *gin.Context) {
	var req services.BatchCheckinRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.Batch(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "批量签到失败")
		return
	}
	response.Success(c, http.StatusOK, result, "批量签到成功")
}

func (h *CheckinHandler) GetCheckin(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	record, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "获取签到记录失败")
		return
	}
	response.Success(c, http.StatusOK, record, "")
}

func (h *CheckinHandler) UpdateCheckin(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	body := map[string]interface{}{}
	if !h.bindJSON(c, &body) {
		return
	}

	record, err := h.service.Update(c.Request.Context(), id, body)
	if err != nil {
		h.handleError(c, err, "更新签到记录失败")
		return
	}
	response.Success(c, http.StatusOK, record, "更新成功")
}

func (h *CheckinHandler) DeleteCheckin(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "删除签到记录失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "删除成功")
}

// GetStats handles GET /api/activity-checkins/:activityId/stats
func (h *CheckinHandler) GetStats(c *gin.Context) {
	activityID, ok := h.parseIDParam(c, "activityId")
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), activityID)
	if err != nil {
		h.handleError(c, err, "获取签到统计失败")
		return
	}
	response.Success(c, http.StatusOK, stats, "")
}
