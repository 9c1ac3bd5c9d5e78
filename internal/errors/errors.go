package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/weiwangfds/structview/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess        ErrorCode = 0    // 成功
	ErrInternalServer ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams  ErrorCode = 1001 // 参数错误
	ErrNotFound       ErrorCode = 1004 // 资源未找到

	// 文件相关错误码 (2000-2999)
	ErrFileNotFound       ErrorCode = 2000 // 结构文件未找到（未知ID或文件丢失）
	ErrFileUploadFailed   ErrorCode = 2002 // 文件上传失败
	ErrFileReadFailed     ErrorCode = 2004 // 文件读取失败
	ErrFileWriteFailed    ErrorCode = 2005 // 文件写入失败
	ErrFileSizeTooLarge   ErrorCode = 2006 // 文件大小超限
	ErrFileTypeNotAllowed ErrorCode = 2007 // 文件类型不允许
	ErrFileEmpty          ErrorCode = 2010 // 文件内容为空

	// 镜像存储相关错误码 (3000-3999)
	ErrMirrorConfigInvalid        ErrorCode = 3001 // 镜像存储配置无效
	ErrMirrorUploadFailed         ErrorCode = 3003 // 镜像存储上传失败
	ErrMirrorProviderNotSupported ErrorCode = 3008 // 镜像存储提供商不支持
	ErrMirrorQueueFull            ErrorCode = 3009 // 镜像队列已满

	// 元数据账本相关错误码 (4000-4999)
	ErrStoreUnavailable ErrorCode = 4000 // 元数据存储不可用
	ErrIDExhausted      ErrorCode = 4010 // 无法生成唯一ID
)

// AppError 应用错误结构体
// @Description 应用程序统一错误格式
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，供 errors.Is / errors.As 继续匹配
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// Is 按错误码比较，使预定义错误可以作为哨兵值使用
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails 创建带详细信息的应用错误
func NewWithDetails(code ErrorCode, message string, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap 包装原始错误，消息取错误码的默认翻译
func Wrap(code ErrorCode, err error) *AppError {
	appErr := &AppError{
		Code:          code,
		Message:       GetErrorMessage(code),
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// Newf 创建带格式化详细信息的应用错误，消息取错误码的默认翻译
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return NewWithDetails(code, GetErrorMessage(code), fmt.Sprintf(format, args...))
}

// GetAppError 从错误链中提取应用错误
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf 返回错误链中的应用错误码，非应用错误返回 ErrInternalServer
func CodeOf(err error) ErrorCode {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code
	}
	return ErrInternalServer
}

// HTTPStatus 返回错误码对应的HTTP状态码
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrSuccess:
		return http.StatusOK
	case ErrInvalidParams, ErrFileTypeNotAllowed, ErrFileEmpty:
		return http.StatusBadRequest
	case ErrFileSizeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrNotFound, ErrFileNotFound:
		return http.StatusNotFound
	case ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义的哨兵错误，仅用于 errors.Is 比较，不要修改其字段
var (
	ErrFileNotFoundError     = New(ErrFileNotFound, GetErrorMessage(ErrFileNotFound))
	ErrFileSizeTooLargeError = New(ErrFileSizeTooLarge, GetErrorMessage(ErrFileSizeTooLarge))
	ErrFileEmptyError        = New(ErrFileEmpty, GetErrorMessage(ErrFileEmpty))

	ErrMirrorQueueFullError = New(ErrMirrorQueueFull, GetErrorMessage(ErrMirrorQueueFull))

	ErrStoreUnavailableError = New(ErrStoreUnavailable, GetErrorMessage(ErrStoreUnavailable))
)

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:        "success",
	ErrInternalServer: "internal_server_error",
	ErrInvalidParams:  "invalid_params",
	ErrNotFound:       "not_found",

	ErrFileNotFound:       "file_not_found",
	ErrFileUploadFailed:   "file_upload_failed",
	ErrFileReadFailed:     "file_read_failed",
	ErrFileWriteFailed:    "file_write_failed",
	ErrFileSizeTooLarge:   "file_size_too_large",
	ErrFileTypeNotAllowed: "file_type_not_allowed",
	ErrFileEmpty:          "file_empty",

	ErrMirrorConfigInvalid:        "mirror_config_invalid",
	ErrMirrorUploadFailed:         "mirror_upload_failed",
	ErrMirrorProviderNotSupported: "mirror_provider_not_supported",
	ErrMirrorQueueFull:            "mirror_queue_full",

	ErrStoreUnavailable: "store_unavailable",
	ErrIDExhausted:      "id_exhausted",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
