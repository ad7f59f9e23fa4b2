package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StudentHandler struct {
	BaseHandler
	importer BaseHandler
	service  services.StudentService
}

func NewStudentHandler(service services.StudentService, logger utils.Logger, production bool) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger, ModuleStudent, production),
		importer:    NewBaseHandler(logger, ModuleImport, production),
		service:     service,
	}
}

// ===== STUDENT ENDPOINTS =====

// ListStudents handles GET /api/students
func (h *StudentHandler) ListStudents(c *gin.Context) {
	h.LogRequest(c, "Listing students")

	page, pageSize := response.PageParams(c)
	filters := repositories.StudentFilters{
		Search:    c.Query("search"),
		ClassID:   optionalUintQuery(c, "classId"),
		Limit:     pageSize,
		Offset:    response.Offset(page, pageSize),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if status := optionalQuery(c, "status"); status != nil {
		s := models.StudentStatus(*status)
		filters.Status = &s
	}

	students, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		h.handleError(c, err, "获取学生列表失败")
		return
	}
	h.respondPage(c, students, total, page, pageSize)
}

// GetStudent handles GET /api/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	student, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "获取学生详情失败")
		return
	}
	response.Success(c, http.StatusOK, student, "")
}

// CreateStudent handles POST /api/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	h.LogRequest(c, "Creating student")

	var req services.CreateStudentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	student, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "创建学生失败")
		return
	}
	response.Success(c, http.StatusCreated, student, "创建成功")
}

// UpdateStudent handles PUT /api/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateStudentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	student, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err, "更新学生失败")
		return
	}
	response.Success(c, http.StatusOK, student, "更新成功")
}

// DeleteStudent handles DELETE /api/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "删除学生失败")
		return
	}
	response.Success(c, http.StatusOK, nil, "删除成功")
}

// ListByClass handles GET /api/students/by-class/:classId
func (h *StudentHandler) ListByClass(c *gin.Context) {
	classID, ok := h.parseIDParam(c, "classId")
	if !ok {
		return
	}

	students, err := h.service.ListByClass(c.Request.Context(), classID)
	if err != nil {
		h.handleError(c, err, "获取班级学生失败")
		return
	}
	if students == nil {
		students = []*models.Student{}
	}
	response.Success(c, http.StatusOK, students, "")
}

// GetStats handles GET /api/students/stats
func (h *StudentHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "获取学生统计失败")
		return
	}
	response.Success(c, http.StatusOK, stats, "")
}

// ===== IMPORT / EXPORT =====

var importUpload = uploadLimits{
	field:      "file",
	maxSize:    services.MaxImportFileSize,
	missingMsg: "请上传文件",
	tooBigMsg:  "文件大小不能超过10MB",
}

// ImportStudents handles POST /api/students/import (multipart field "file")
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	h.importer.LogRequest(c, "Importing students")

	header, ok := receiveFile(c, importUpload)
	if !ok {
		return
	}
	if !services.ImportExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		response.Error(c, http.StatusBadRequest, "仅支持 .xlsx、.xls、.csv 文件", response.CodeInvalidFile)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.importer.handleError(c, err, "读取上传文件失败")
		return
	}
	defer file.Close()

	result, err := h.service.Import(c.Request.Context(), header.Filename, file)
	var interrupted *services.ImportInterruptedError
	if errors.As(err, &interrupted) {
		utils.GetLogger(c, h.logger).Warn("Student import interrupted", "row", interrupted.Row, "error", interrupted.Err)
		response.ErrorWithData(c, http.StatusServiceUnavailable, interrupted.Result,
			fmt.Sprintf("导入中断于第%d行，已成功导入%d条，失败%d条", interrupted.Row, interrupted.Result.Imported, interrupted.Result.Failed),
			response.CodeServiceUnavailable)
		return
	}
	if err != nil {
		h.importer.handleError(c, err, "导入学生失败")
		return
	}
	response.Success(c, http.StatusOK, result, fmt.Sprintf("成功导入%d条，失败%d条", result.Imported, result.Failed))
}

// ExportStudents handles GET /api/students/export
func (h *StudentHandler) ExportStudents(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf); err != nil {
		h.importer.handleError(c, err, "导出学生失败")
		return
	}

	fileName := fmt.Sprintf("students_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
