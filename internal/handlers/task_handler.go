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

type TaskHandler struct {
	BaseHandler
	service services.TaskService
}

func NewTaskHandler(service services.TaskService, logger utils.Logger, production bool) *TaskHandler {
	return &TaskHandler{
		BaseHandler: NewBaseHandler(logger, ModuleTask, production),
		service:     service,
	}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	page, pageSize := response.PageParams(c)
	filters := repositories.TaskFilters{
		AssigneeID: optionalQuery(c, "assigneeId"),
		Limit:      pageSize,
		Offset:     response.Offset(page, pageSize),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}
	if status := optionalQuery(c, "status"); status != nil {
		s := models.TaskStatus(*status)
		filters.Status = &s
	}
	if priority := optionalQuery(c, "priority"); priority != nil {
		p := models.TaskPriority(*priority)
		filters.Priority = &p
	}

	tasks, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		h.handleError(c, err, "获取任务列表失败")
		return
	}
	h.respondPage(c, tasks, total, page, pageSize)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "获取任务详情失败")
		return
	}
	response.Success(c, http.StatusOK, task, "")
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req services.CreateTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}

	task, err := h.service.Create(c.Request.Context(), &req, identity.UserID)
	if err != nil {
		h.handleError(c, err, "创建任务失败")
		return
	}
	response.Success(c, http.StatusCreated, task, "创建成功")
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateTaskStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	task, err := h.service.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err, "更新任务状态失败")
		return
	}
	response.Success(c, http.StatusOK, task, "状态更新成功")
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "删除任务失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "删除成功")
}

var attachmentUpload = uploadLimits{
	field:      "file",
	maxSize:    services.MaxAttachmentSize,
	missingMsg: "请选择要上传的文件",
	tooBigMsg:  "文件大小不能超过100MB",
}

// UploadAttachment handles POST /api/tasks/:id/attachments (multipart field "file")
func (h *TaskHandler) UploadAttachment(c *gin.Context) {
	h.LogRequest(c, "Uploading task attachment")

	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	header, ok := receiveFile(c, attachmentUpload)
	if !ok {
		return
	}

	file, err := header.Open()
	if err != nil {
		h.handleError(c, err, "读取上传文件失败")
		return
	}
	defer file.Close()

	attachment, err := h.service.AddAttachment(c.Request.Context(), id, &services.AttachmentUpload{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	}, identity.UserID)
	if err != nil {
		h.handleError(c, err, "上传附件失败")
		return
	}
	response.Success(c, http.StatusCreated, attachment, "上传成功")
}

func (h *TaskHandler) ListAttachments(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	attachments, err := h.service.ListAttachments(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "获取附件列表失败")
		return
	}
	response.Success(c, http.StatusOK, attachments, "")
}
