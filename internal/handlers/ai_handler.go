package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
)

// sseDone terminates every chat stream, including failed ones.
const sseDone = "[DONE]"

type AIHandler struct {
	BaseHandler
	service services.AIService
}

func NewAIHandler(service services.AIService, logger utils.Logger, production bool) *AIHandler {
	return &AIHandler{
		BaseHandler: NewBaseHandler(logger, ModuleAI, production),
		service:     service,
	}
}

func (h *AIHandler) ListModels(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Models(), "")
}

// ===== SHORTCUTS =====

func (h *AIHandler) ListShortcuts(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	page, pageSize := response.PageParams(c)
	filters := repositories.ShortcutFilters{
		Category: optionalQuery(c, "category"),
		Limit:    pageSize,
		Offset:   response.Offset(page, pageSize),
	}
	shortcuts, total, err := h.service.ListShortcuts(c.Request.Context(), identity.UserID, filters)
	if err != nil {
		h.handleError(c, err, "获取快捷指令失败")
		return
	}
	h.respondPage(c, shortcuts, total, page, pageSize)
}

func (h *AIHandler) GetShortcut(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	shortcut, err := h.service.GetShortcut(c.Request.Context(), id, identity.UserID)
	if err != nil {
		h.handleError(c, err, "获取快捷指令失败")
		return
	}
	response.Success(c, http.StatusOK, shortcut, "")
}

func (h *AIHandler) CreateShortcut(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req services.CreateShortcutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	shortcut, err := h.service.CreateShortcut(c.Request.Context(), &req, identity.UserID)
	if err != nil {
		h.handleError(c, err, "创建快捷指令失败")
		return
	}
	response.Success(c, http.StatusCreated, shortcut, "创建成功")
}

func (h *AIHandler) UpdateShortcut(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateShortcutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	shortcut, err := h.service.UpdateShortcut(c.Request.Context(), id, &req, identity.UserID)
	if err != nil {
		h.handleError(c, err, "更新快捷指令失败")
		return
	}
	response.Success(c, http.StatusOK, shortcut, "更新成功")
}

func (h *AIHandler) DeleteShortcut(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteShortcut(c.Request.Context(), id, identity.UserID); err != nil {
		h.handleError(c, err, "删除快捷指令失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "删除成功")
}

func (h *AIHandler) GetAnalysis(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	analysis, err := h.service.Analysis(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "获取分析结果失败")
		return
	}
	response.Success(c, http.StatusOK, analysis, "")
}

// ===== STREAMING =====

// ChatStream handles POST /api/ai/chat/stream. Errors found before the first byte use the
// JSON envelope; once the stream is open they are sent as an error event followed by [DONE].
func (h *AIHandler) ChatStream(c *gin.Context) {
	h.LogRequest(c, "Starting chat stream")

	var req services.ChatRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.service.ValidateChat(&req); err != nil {
		h.handleError(c, err, "参数验证失败")
		return
	}
	if !h.service.StreamAvailable() {
		response.Error(c, http.StatusServiceUnavailable, "AI 服务未配置", response.CodeServiceUnavailable)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	err := h.service.StreamChat(c.Request.Context(), &req, func(chunk string) error {
		return writeEvent(c, gin.H{"content": chunk})
	})
	if err != nil {
		utils.GetLogger(c, h.logger).Warn("Chat stream ended with error",
			"module", h.module,
			"error", err)
		message := "AI 服务调用失败"
		if !h.production {
			message = fmt.Sprintf("%s: %v", message, err)
		}
		_ = writeEvent(c, gin.H{"error": message})
	}
	writeData(c, sseDone)
}

func writeEvent(c *gin.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	writeData(c, string(data))
	return c.Request.Context().Err()
}

func writeData(c *gin.Context, data string) {
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
