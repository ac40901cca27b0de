package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 표준 에러 응답 구조
type ErrorResponse struct {
	Error   string                 `json:"error"`          // 에러 코드 (프론트엔드에서 매핑용)
	Message string                 `json:"message"`        // 사용자 친화적 메시지
	Data    map[string]interface{} `json:"data,omitempty"` // 부가 정보 (available, limit 등)
}

// RespondWithError 에러 응답 헬퍼
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// 자주 사용하는 에러 응답 단축 함수들

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Something went wrong, please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// ValidationError 검증 에러 (필드별 오류 메시지)
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ValidationError{
		Error:   ValidationInvalidInput,
		Message: "Invalid input",
		Fields:  fields,
	})
}

// RespondWithServiceError maps err through ParseError and writes it.
func RespondWithServiceError(c *gin.Context, err error, context string) {
	info := ParseError(err, context)
	c.JSON(info.Status, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
		Data:    info.Data,
	})
}
