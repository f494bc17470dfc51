package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"go.uber.org/zap"
)

// Stable error codes of the response envelope
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInvalidWallet     = "INVALID_WALLET"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

func success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func failure(c *gin.Context, status int, code, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, models.APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		Errors:  fields,
	})
}

// respondError maps a service error onto the envelope. Unknown errors are
// logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		failure(c, http.StatusBadRequest, CodeValidation, "Validation failed", verr.Fields)
	case errors.Is(err, models.ErrValidation):
		failure(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.Is(err, models.ErrInvalidCredentials):
		failure(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, models.ErrNotFound):
		failure(c, http.StatusNotFound, CodeNotFound, "Resource not found", nil)
	case errors.Is(err, models.ErrNoBudget):
		failure(c, http.StatusNotFound, CodeNotFound, models.ErrNoBudget.Error(), nil)
	case errors.Is(err, models.ErrUserAlreadyExists):
		failure(c, http.StatusConflict, CodeConflict, "Username or email already in use", nil)
	case errors.Is(err, models.ErrCategoryExists):
		failure(c, http.StatusConflict, CodeConflict, "Category name already exists", nil)
	case errors.Is(err, models.ErrWalletHasTransactions):
		failure(c, http.StatusConflict, CodeConflict, "Wallet has transactions and cannot be deleted", nil)
	case errors.Is(err, models.ErrInsufficientFunds):
		failure(c, http.StatusUnprocessableEntity, CodeInsufficientFunds, "Insufficient wallet balance", nil)
	case errors.Is(err, models.ErrInvalidWallet):
		failure(c, http.StatusUnprocessableEntity, CodeInvalidWallet, "Invalid wallet", nil)
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		failure(c, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
	}
}

// respondBindError reports a request that could not be bound or failed its tags
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		failure(c, http.StatusBadRequest, CodeValidation, "Validation failed", fieldErrors(verrs))
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		failure(c, http.StatusBadRequest, CodeValidation, "Validation failed",
			map[string]string{typeErr.Field: "has the wrong type"})
	case errors.As(err, &syntaxErr):
		failure(c, http.StatusBadRequest, CodeValidation, "Malformed JSON body", nil)
	default:
		failure(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	}
}
