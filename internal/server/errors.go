package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	partydomain "github.com/ironlot/settlement/internal/party/domain"
	"github.com/ironlot/settlement/internal/providers/storage"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

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

func mapError(err error) (int, errorPayload) {
	errType, _ := classifyError(err)
	switch errType {
	case "validation_error":
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case "permission_denied":
		return http.StatusForbidden, errorPayload{
			Type:    "permission_denied",
			Message: "permission denied",
		}
	case "not_found":
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case "conflict":
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case "payment_precondition_failed":
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "payment_precondition_failed",
			Message: "payment cannot be confirmed while fees are pending approval",
		}
	case "storage_unavailable":
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "storage_unavailable",
			Message: "document storage is unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyError buckets an error for both response mapping and request-log
// fields.
func classifyError(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, invoicedomain.ErrValidationFailed),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, partydomain.ErrInvalidName),
		errors.Is(err, partydomain.ErrInvalidEmail),
		errors.Is(err, ErrInvalidRequest):
		return "validation_error", err.Error()
	case errors.Is(err, invoicedomain.ErrPermissionDenied):
		return "permission_denied", "permission_denied"
	case errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, partydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found", "not_found"
	case errors.Is(err, invoicedomain.ErrInvalidStateTransition),
		errors.Is(err, invoicedomain.ErrAlreadyConfirmed),
		errors.Is(err, invoicedomain.ErrConcurrentModification):
		return "conflict", err.Error()
	case errors.Is(err, invoicedomain.ErrPaymentPreconditionFailed):
		return "payment_precondition_failed", "payment_precondition_failed"
	case errors.Is(err, storage.ErrUnavailable):
		return "storage_unavailable", "storage_unavailable"
	default:
		return "internal_error", "internal_error"
	}
}

func classifyErrorForLog(err error) (string, string) {
	return classifyError(err)
}
