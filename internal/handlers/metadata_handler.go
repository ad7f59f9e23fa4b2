package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
)

const healthTimeout = 3 * time.Second

// DocumentFormat is one entry of GET /api/documents/formats.
type DocumentFormat struct {
	Extension string `json:"extension"`
	MimeType  string `json:"mimeType"`
	Import    bool   `json:"import"`
	Export    bool   `json:"export"`
}

var documentFormats = []DocumentFormat{
	{Extension: ".xlsx", MimeType: xlsxContentType, Import: true, Export: true},
	{Extension: ".xls", MimeType: "application/vnd.ms-excel", Import: true},
	{Extension: ".csv", MimeType: "text/csv", Import: true},
	{Extension: ".pdf", MimeType: "application/pdf"},
	{Extension: ".docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// MetadataHandler serves the unauthenticated endpoints: health, schema metadata and document formats.
type MetadataHandler struct {
	BaseHandler
	metadata repositories.MetadataRepository
	tenants  *tenant.Registry
	services services.ServiceManager
	cache    *cache.CacheManager
}

func NewMetadataHandler(
	metadata repositories.MetadataRepository,
	tenants *tenant.Registry,
	serviceManager services.ServiceManager,
	cacheManager *cache.CacheManager,
	logger utils.Logger,
	production bool,
) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: NewBaseHandler(logger, ModuleMetadata, production),
		metadata:    metadata,
		tenants:     tenants,
		services:    serviceManager,
		cache:       cacheManager,
	}
}

// Health reports liveness plus database and redis reachability. A database failure is a 503;
// redis is optional and only reported.
func (h *MetadataHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	database := "up"
	if err := h.services.HealthCheck(ctx); err != nil {
		utils.GetLogger(c, h.logger).Warn("Database health check failed", "error", err)
		database = "down"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	redisStatus := "up"
	if err := h.cache.HealthCheck(ctx); err != nil {
		redisStatus = "down"
		if errors.Is(err, cache.ErrCacheNotAvailable) {
			redisStatus = "disabled"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   services.ServiceName,
		"version":   services.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"database": database,
			"redis":    redisStatus,
		},
	})
}

// ListTables handles GET /api/db-metadata/tables?tenant=
func (h *MetadataHandler) ListTables(c *gin.Context) {
	schema, ok := h.resolveTenant(c)
	if !ok {
		return
	}

	tables, err := h.metadata.ListTables(c.Request.Context(), schema)
	if err != nil {
		h.handleError(c, err, "获取数据表失败")
		return
	}
	if tables == nil {
		tables = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{"schema": schema, "tables": tables}, "")
}

// ListColumns handles GET /api/db-metadata/tables/:table/columns?tenant=
func (h *MetadataHandler) ListColumns(c *gin.Context) {
	schema, ok := h.resolveTenant(c)
	if !ok {
		return
	}
	table := c.Param("table")

	columns, err := h.metadata.ListColumns(c.Request.Context(), schema, table)
	if err != nil {
		h.handleError(c, err, "获取字段信息失败")
		return
	}
	if len(columns) == 0 {
		response.Error(c, http.StatusNotFound, "数据表不存在", response.CodeNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"schema": schema, "table": table, "columns": columns}, "")
}

func (h *MetadataHandler) DocumentFormats(c *gin.Context) {
	response.Success(c, http.StatusOK, documentFormats, "")
}

// resolveTenant maps the tenant query parameter (or the default) onto an allowlisted schema.
func (h *MetadataHandler) resolveTenant(c *gin.Context) (string, bool) {
	schema, err := h.tenants.ResolveFirst(c.Query("tenant"), c.GetHeader(tenant.HeaderName))
	if err != nil {
		response.ValidationError(c, "未知的租户", []response.FieldError{{
			Field:   "tenant",
			Message: "is not a known tenant",
			Rule:    "tenant",
		}})
		return "", false
	}
	return schema, true
}
