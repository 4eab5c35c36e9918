package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe code and message derived from an internal error
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps storage and network errors to client-safe codes without
// leaking driver details. action names what was being done ("create address").
func ParseError(err error, action string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: "The requested item could not be found"}
	}

	errLower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint"):
		if strings.Contains(errLower, "email") {
			return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
		}
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This item already exists"}

	case strings.Contains(errLower, "foreign key constraint"):
		return ErrorInfo{Code: ResourceConflict, Message: "This item is still referenced and cannot be changed"}

	case strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint"):
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}

	case strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout"):
		return ErrorInfo{Code: InternalExternalAPI, Message: "A dependent service is unavailable. Please try again later"}
	}

	if action != "" {
		return ErrorInfo{Code: InternalServerError, Message: "Failed to " + action + ". Please try again later"}
	}
	return ErrorInfo{Code: InternalServerError, Message: "Something went wrong. Please try again later"}
}

// ParseAndRespond parses err and writes it with statusCode
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, action string) {
	info := ParseError(err, action)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
