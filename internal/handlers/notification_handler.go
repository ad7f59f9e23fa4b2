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

// NotificationHandler serves the notification inbox. Reads are always scoped to the caller.
type NotificationHandler struct {
	BaseHandler
	service services.NotificationService
}

func NewNotificationHandler(service services.NotificationService, logger utils.Logger, production bool) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler: NewBaseHandler(logger, ModuleNotification, production),
		service:     service,
	}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	page, pageSize := response.PageParams(c)
	filters := repositories.NotificationFilters{
		IsRead: optionalBoolQuery(c, "isRead"),
		Limit:  pageSize,
		Offset: response.Offset(page, pageSize),
	}
	if typ := optionalQuery(c, "type"); typ != nil {
		t := models.NotificationType(*typ)
		filters.Type = &t
	}

	items, total, err := h.service.ListForUser(c.Request.Context(), identity.UserID, filters)
	if err != nil {
		h.handleError(c, err, "获取通知列表失败")
		return
	}
	h.respondPage(c, items, total, page, pageSize)
}

// UnreadCount handles GET /api/notifications/unread/count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), identity.UserID)
	if err != nil {
		h.handleError(c, err, "获取未读数量失败")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": count}, "")
}

func (h *NotificationHandler) GetNotification(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	notification, err := h.service.GetForUser(c.Request.Context(), id, identity.UserID)
	if err != nil {
		h.handleError(c, err, "获取通知详情失败")
		return
	}
	response.Success(c, http.StatusOK, notification, "")
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, identity.UserID); err != nil {
		h.handleError(c, err, "标记已读失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "已标记为已读")
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(c.Request.Context(), identity.UserID)
	if err != nil {
		h.handleError(c, err, "全部标记已读失败")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated}, "")
}

// CreateNotification handles POST /api/notifications. One row is stored per distinct receiver.
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	h.LogRequest(c, "Creating notifications")

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req services.CreateNotificationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	count, err := h.service.Create(c.Request.Context(), &req, identity.UserID)
	if err != nil {
		h.handleError(c, err, "发送通知失败")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"count": count}, "发送成功")
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "删除通知失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "删除成功")
}
