// Package response 定义接口的统一响应格式
// 上传、历史列表等与前端约定的接口直接返回裸JSON，不经过这里；错误与管理类接口使用统一信封
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/structview/internal/errors"
	"github.com/weiwangfds/structview/internal/i18n"
	"github.com/weiwangfds/structview/internal/logger"
)

// Response 统一返回值结构体
type Response struct {
	// 状态码，0表示成功，非0表示失败
	Code int `json:"code"`
	// 响应消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty"`
	// 时间戳
	Timestamp int64 `json:"timestamp"`
}

// now 便于测试时替换
var now = time.Now

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, apperrors.GetErrorMessageWithLang(apperrors.ErrSuccess, Language(c)), data)
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      int(apperrors.ErrSuccess),
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: now().Unix(),
	})
}

// Error 按应用错误码返回错误响应，HTTP状态码由错误码决定
// 非应用错误按服务器内部错误处理，原始信息只写日志
func Error(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		logger.Errorf("未分类的错误 [%s %s]: %v", c.Request.Method, c.Request.URL.Path, err)
		appErr = apperrors.New(apperrors.ErrInternalServer, "")
	}

	status := apperrors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Errorf("请求失败 [%s %s]: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	resp := Response{
		Code:      int(appErr.Code),
		Message:   apperrors.GetErrorMessageWithLang(appErr.Code, Language(c)),
		RequestID: getRequestID(c),
		Timestamp: now().Unix(),
	}
	// 5xx 不向客户端暴露底层细节
	if status < http.StatusInternalServerError {
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(status, resp)
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, details string) {
	Error(c, apperrors.NewWithDetails(apperrors.ErrInvalidParams, "", details))
}

// NotFound 404错误响应
func NotFound(c *gin.Context, details string) {
	Error(c, apperrors.NewWithDetails(apperrors.ErrNotFound, "", details))
}

// Language 从 Accept-Language 请求头确定响应语言
func Language(c *gin.Context) string {
	return i18n.GetInstance().MatchLanguage(c.GetHeader("Accept-Language"))
}

// getRequestID 从gin上下文中获取请求ID
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
