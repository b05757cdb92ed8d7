package responder

import apperrors "github.com/leeforge/picpipe/errors"

// 4xxx 客户端错误，5xxx 服务端错误
const (
	ErrCodeBadRequest       = 4000 // 请求格式错误
	ErrCodeBindFailed       = 4001 // 参数绑定错误
	ErrCodeValidationFailed = 4002 // 数据验证失败
	ErrCodeNotFound         = 4003 // 资源不存在
	ErrCodeTooLarge         = 4013 // 上传体积超限
	ErrCodeUnprocessable    = 4022 // 图片无法解码或编码
	ErrCodeTooManyRequests  = 4029 // 请求过于频繁

	ErrCodeInternalServer = 5000 // 内部服务器错误
	ErrCodeServiceBusy    = 5003 // 处理队列已满
	ErrCodeStorageService = 5004 // 存储服务错误
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:       "Bad Request",
	ErrCodeBindFailed:       "Invalid Request Body",
	ErrCodeValidationFailed: "Validation Failed",
	ErrCodeNotFound:         "Resource Not Found",
	ErrCodeTooLarge:         "Payload Too Large",
	ErrCodeUnprocessable:    "Unprocessable Image",
	ErrCodeTooManyRequests:  "Too Many Requests",
	ErrCodeInternalServer:   "Internal Server Error",
	ErrCodeServiceBusy:      "Service Busy",
	ErrCodeStorageService:   "Storage Service Error",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// NewError creates a new Error with code and message
func NewError(code int, message string) Error {
	return NewErrorWithDetails(code, message, nil)
}

// NewErrorWithDetails creates a new Error with code, message and details
func NewErrorWithDetails(code int, message string, details any) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{Code: code, Message: message, Details: details}
}

// codeFor maps an AppError type onto a response code.
func codeFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return ErrCodeValidationFailed
	case apperrors.ErrorTypeCodec:
		return ErrCodeUnprocessable
	case apperrors.ErrorTypeStore:
		return ErrCodeStorageService
	default:
		return ErrCodeInternalServer
	}
}
