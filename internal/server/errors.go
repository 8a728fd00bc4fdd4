package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	entitydomain "github.com/smallbiznis/shopbooks/internal/entity/domain"
	ledgerdomain "github.com/smallbiznis/shopbooks/internal/ledger/domain"
	reconciledomain "github.com/smallbiznis/shopbooks/internal/reconcile/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, ledgerdomain.ErrDuplicateEntry):
		return http.StatusConflict, errorPayload{
			Type:    conflictType(err),
			Message: conflictMessage(err),
		}
	case errors.Is(err, reconciledomain.ErrNotCredit),
		errors.Is(err, entitydomain.ErrInsufficientStock),
		errors.Is(err, entitydomain.ErrJobClosed):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    err.Error(),
			Message: stateMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type/code the client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return "internal", code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isLedgerValidationError(err),
		isEntityValidationError(err),
		isReconcileValidationError(err):
		return true
	default:
		return false
	}
}

func isLedgerValidationError(err error) bool {
	switch {
	case errors.Is(err, ledgerdomain.ErrZeroAmount),
		errors.Is(err, ledgerdomain.ErrInvalidDomain),
		errors.Is(err, ledgerdomain.ErrInvalidKind):
		return true
	default:
		return false
	}
}

func isEntityValidationError(err error) bool {
	switch {
	case errors.Is(err, entitydomain.ErrInvalidDate),
		errors.Is(err, entitydomain.ErrInvalidQty),
		errors.Is(err, entitydomain.ErrInvalidAmount),
		errors.Is(err, entitydomain.ErrInvalidStatus),
		errors.Is(err, entitydomain.ErrInvalidCustomer),
		errors.Is(err, entitydomain.ErrInvalidName),
		errors.Is(err, entitydomain.ErrInvalidCategory):
		return true
	default:
		return false
	}
}

func isReconcileValidationError(err error) bool {
	switch {
	case errors.Is(err, reconciledomain.ErrInvalidAmount),
		errors.Is(err, reconciledomain.ErrInvalidRef),
		errors.Is(err, reconciledomain.ErrNotPool),
		errors.Is(err, reconciledomain.ErrInvalidDate):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, entitydomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "zero_amount":
		return "amount"
	case "not_pool_kind":
		return "kind"
	case "invalid_collection_ref":
		return "ref"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "zero_amount":
		return "amount must not be zero"
	case "not_pool_kind":
		return "kind is not a pool"
	default:
		return "invalid value"
	}
}

func conflictType(err error) string {
	if errors.Is(err, ledgerdomain.ErrDuplicateEntry) {
		return "duplicate_entry"
	}
	return "conflict"
}

func conflictMessage(err error) string {
	if errors.Is(err, ledgerdomain.ErrDuplicateEntry) {
		return "collection already recorded"
	}
	return "conflict"
}

func stateMessage(err error) string {
	switch {
	case errors.Is(err, reconciledomain.ErrNotCredit):
		return "nothing outstanding to collect"
	case errors.Is(err, entitydomain.ErrInsufficientStock):
		return "not enough stock remaining"
	default:
		return "service job already closed"
	}
}
