package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/auth"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

// Module tags attached to error logs.
const (
	ModuleStudent      = "STUDENT"
	ModuleActivity     = "ACTIVITY"
	ModuleCheckin      = "CHECKIN"
	ModuleNotification = "NOTIFICATION"
	ModuleAI           = "AI"
	ModuleStatistics   = "STATISTICS"
	ModuleSystem       = "SYSTEM"
	ModuleTask         = "TASK"
	ModuleImport       = "IMPORT"
	ModuleMetadata     = "METADATA"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	logger     utils.Logger
	module     string
	production bool
}

func NewBaseHandler(logger utils.Logger, module string, production bool) BaseHandler {
	return BaseHandler{logger: logger, module: module, production: production}
}

// LogRequest logs the incoming request at debug level
func (h *BaseHandler) LogRequest(c *gin.Context, message string) {
	utils.GetLogger(c, h.logger).Debug(message,
		"module", h.module,
		"method", c.Request.Method,
		"path", c.Request.URL.Path)
}

// handleError maps service errors onto the response envelope. Unknown errors
// become a 500 with the fallback message.
func (h *BaseHandler) handleError(c *gin.Context, err error, fallback string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.ValidationError(c, "", fieldErrors(verrs))
		return
	}

	status, code := http.StatusInternalServerError, response.CodeInternalError
	switch {
	case errors.Is(err, services.ErrInvalidFile):
		status, code = http.StatusBadRequest, response.CodeInvalidFile
	case errors.Is(err, services.ErrForbidden):
		status, code = http.StatusForbidden, response.CodeForbidden
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, services.ErrConflict):
		status, code = http.StatusConflict, response.CodeConflict
	case errors.Is(err, services.ErrNotImplemented):
		status, code = http.StatusNotImplemented, response.CodeNotImplemented
	case errors.Is(err, services.ErrProviderUnavailable):
		status, code = http.StatusServiceUnavailable, response.CodeServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		utils.GetLogger(c, h.logger).Error(fallback,
			"module", h.module,
			"error", err,
			"path", c.Request.URL.Path)

		message := fallback
		if !h.production {
			message = fallback + ": " + err.Error()
		}
		response.Error(c, status, message, code)
		return
	}

	message := fallback
	var userErr *services.UserMessageError
	if errors.As(err, &userErr) {
		message = userErr.Message
	}
	response.Error(c, status, message, code)
}

// bindJSON decodes the body into dest and writes the 400 envelope on failure.
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			response.ValidationError(c, "", []response.FieldError{{
				Field:   typeErr.Field,
				Message: "has the wrong type",
				Rule:    "type",
			}})
		case errors.As(err, &syntaxErr):
			response.ValidationError(c, "请求体不是合法的 JSON", nil)
		default:
			response.ValidationError(c, "", nil)
		}
		return false
	}
	return true
}

// parseIDParam reads a positive integer path parameter. It writes 400 and returns false otherwise.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ValidationError(c, "", []response.FieldError{{
			Field:   name,
			Message: "must be a positive integer",
			Rule:    "id",
		}})
		return 0, false
	}
	return uint(id), true
}

// identity returns the caller bound by the auth gate. Routes behind Authenticate always have one.
func (h *BaseHandler) identity(c *gin.Context) (*models.Identity, bool) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.MsgUnauthorized, response.CodeUnauthorized)
		return nil, false
	}
	return identity, true
}

func (h *BaseHandler) respondPage(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	response.Success(c, http.StatusOK, response.NewPage(items, total, page, pageSize), "")
}

// uploadLimits names the multipart field and the messages for a file upload.
type uploadLimits struct {
	field      string
	maxSize    int64
	missingMsg string
	tooBigMsg  string
}

// receiveFile caps the request body and returns the uploaded file header.
// It writes the 400 envelope and returns false when the file is missing or too large.
func receiveFile(c *gin.Context, limits uploadLimits) (*multipart.FileHeader, bool) {
	// Leave room for the multipart envelope around the file part.
	bodyLimit := limits.maxSize + 1<<20
	if c.Request.ContentLength > bodyLimit {
		response.Error(c, http.StatusBadRequest, limits.tooBigMsg, response.CodeInvalidFile)
		return nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

	header, err := c.FormFile(limits.field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, limits.tooBigMsg, response.CodeInvalidFile)
			return nil, false
		}
		response.Error(c, http.StatusBadRequest, limits.missingMsg, response.CodeInvalidFile)
		return nil, false
	}
	if header.Size > limits.maxSize {
		response.Error(c, http.StatusBadRequest, limits.tooBigMsg, response.CodeInvalidFile)
		return nil, false
	}
	return header, true
}

func fieldErrors(verrs validator.ValidationErrors) []response.FieldError {
	out := make([]response.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, response.FieldError{Field: fe.Field, Message: fe.Message, Rule: fe.Rule})
	}
	return out
}

func optionalQuery(c *gin.Context, key string) *string {
	if v, ok := c.GetQuery(key); ok && v != "" {
		return &v
	}
	return nil
}

func optionalUintQuery(c *gin.Context, key string) *uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return nil
	}
	id := uint(v)
	return &id
}

func optionalBoolQuery(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}
