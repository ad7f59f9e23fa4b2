package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
)

type StatisticsHandler struct {
	BaseHandler
	service services.StatisticsService
}

func NewStatisticsHandler(service services.StatisticsService, logger utils.Logger, production bool) *StatisticsHandler {
	return &StatisticsHandler{
		BaseHandler: NewBaseHandler(logger, ModuleStatistics, production),
		service:     service,
	}
}

// ===== STATISTICS ENDPOINTS =====

// GetOverview returns tenant-wide counts
func (h *StatisticsHandler) GetOverview(c *gin.Context) {
	h.LogRequest(c, "Getting statistics overview")

	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "获取统计概览失败")
		return
	}
	response.Success(c, http.StatusOK, overview, "")
}

// GetDashboard returns the dashboard payload
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "获取仪表盘数据失败")
		return
	}
	response.Success(c, http.StatusOK, dashboard, "")
}

func (h *StatisticsHandler) Export(c *gin.Context) {
	h.handleError(c, h.service.Export(c.Request.Context()), "导出失败")
}
