package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
)

type SystemHandler struct {
	BaseHandler
	service services.SystemService
}

func NewSystemHandler(service services.SystemService, logger utils.Logger, production bool) *SystemHandler {
	return &SystemHandler{
		BaseHandler: NewBaseHandler(logger, ModuleSystem, production),
		service:     service,
	}
}

func (h *SystemHandler) GetInfo(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Info(c.Request.Context()), "")
}

func (h *SystemHandler) ClearCache(c *gin.Context) {
	h.handleError(c, h.service.ClearCache(c.Request.Context()), "清理缓存失败")
}

func (h *SystemHandler) TestEmail(c *gin.Context) {
	h.handleError(c, h.service.TestEmail(c.Request.Context()), "邮件测试失败")
}
