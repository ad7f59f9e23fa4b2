package response

import (
	"github.com/gin-gonic/gin"
)

const (
	CodeInvalidParams      = "INVALID_PARAMS"
	CodeInvalidFile        = "INVALID_FILE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeNotImplemented     = "NOT_IMPLEMENTED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
)

const (
	MsgUnauthorized   = "未授权访问"
	MsgForbidden      = "权限不足"
	MsgRouteNotFound  = "接口不存在"
	MsgInternalError  = "服务器内部错误"
	MsgInvalidParams  = "参数验证失败"
	MsgTooManyRequest = "请求过于频繁"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

func Success(c *gin.Context, status int, data interface{}, message string) {
	if message == "" {
		message = "操作成功"
	}
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message, code string) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Code:    code,
	})
}

// ErrorWithData is Error plus a payload describing what completed before the failure.
func ErrorWithData(c *gin.Context, status int, data interface{}, message, code string) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Data:    data,
		Code:    code,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message, code string) {
	Error(c, status, message, code)
	c.Abort()
}

func ValidationError(c *gin.Context, message string, errs []FieldError) {
	if message == "" {
		message = MsgInvalidParams
	}
	env := Envelope{
		Success: false,
		Message: message,
		Code:    CodeInvalidParams,
	}
	if len(errs) > 0 {
		env.Errors = errs
	}
	c.JSON(400, env)
}
