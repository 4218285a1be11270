package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeWeakPassword     ErrorCode = "WEAK_PASSWORD"
	ErrCodePasswordMismatch ErrorCode = "PASSWORD_MISMATCH"
	ErrCodeHandleTaken      ErrorCode = "HANDLE_TAKEN"

	ErrCodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	ErrCodeSessionInvalidated  ErrorCode = "SESSION_INVALIDATED"
	ErrCodeVerificationFailed  ErrorCode = "VERIFICATION_FAILED"
	ErrCodeVerificationExpired ErrorCode = "VERIFICATION_EXPIRED"

	ErrCodeSessionAlreadyOpen ErrorCode = "SESSION_ALREADY_OPEN"
	ErrCodeNoOpenSession      ErrorCode = "NO_OPEN_SESSION"
	ErrCodeSessionNotActive   ErrorCode = "SESSION_NOT_ACTIVE"
	ErrCodeSessionNotPaused   ErrorCode = "SESSION_NOT_PAUSED"

	ErrCodeNoPendingPayment ErrorCode = "NO_PENDING_PAYMENT"
	ErrCodeNothingAccrued   ErrorCode = "NOTHING_ACCRUED"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeRankNotFound       ErrorCode = "RANK_NOT_FOUND"
	ErrCodeRankInUse          ErrorCode = "RANK_IN_USE"
	ErrCodeHierarchyViolation ErrorCode = "HIERARCHY_VIOLATION"
	ErrCodeSelfPromotion      ErrorCode = "SELF_PROMOTION"
	ErrCodeInvalidPermission  ErrorCode = "INVALID_PERMISSION"
	ErrCodeConfigNotFound     ErrorCode = "CONFIG_NOT_FOUND"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Join() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError keeps the cause for logs but never exposes driver details
// in the serialized message.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("invalid credentials", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)
	ErrSessionInvalidated = NewUnauthorizedError("session has been invalidated", ErrCodeSessionInvalidated)

	ErrHandleTaken         = NewConflictError("habbo name is already registered", ErrCodeHandleTaken)
	ErrVerificationFailed  = NewValidationError("verification code not found in motto", ErrCodeVerificationFailed)
	ErrVerificationExpired = NewValidationError("verification code has expired", ErrCodeVerificationExpired)

	ErrSessionAlreadyOpen = NewConflictError("an open time session already exists", ErrCodeSessionAlreadyOpen)
	ErrNoOpenSession      = NewNotFoundError("no open time session", ErrCodeNoOpenSession)
	ErrSessionNotActive   = NewValidationError("time session is not active", ErrCodeSessionNotActive)
	ErrSessionNotPaused   = NewValidationError("time session is not paused", ErrCodeSessionNotPaused)

	ErrNoPendingPayment = NewNotFoundError("no pending payment for user", ErrCodeNoPendingPayment)
	ErrNothingAccrued   = NewValidationError("user has no accrued credits", ErrCodeNothingAccrued)

	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrRankNotFound       = NewNotFoundError("rank not found", ErrCodeRankNotFound)
	ErrRankInUse          = NewConflictError("rank is assigned to users", ErrCodeRankInUse)
	ErrSelfPromotion      = NewForbiddenError("no puedes modificar tu propio rol", ErrCodeSelfPromotion)
	ErrHierarchyViolation = NewForbiddenError("no puedes asignar un rol igual o superior al tuyo", ErrCodeHierarchyViolation)
	ErrInvalidPermission  = NewValidationError("unknown permission tag", ErrCodeInvalidPermission)
	ErrConfigNotFound     = NewNotFoundError("config key not found", ErrCodeConfigNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
