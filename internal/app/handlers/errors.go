package handlers

import (
	"errors"
	"net/http"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []apperrors.FieldError `json:"fields,omitempty"`
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Code: apperrors.Code(err), Message: err.Error()}
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		logger.CtxError(ctx, "Request failed", err)
	} else {
		logger.CtxDebug(ctx, "Request rejected", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, resp)
}

// writeBindError reports a body that could not be decoded at all.
func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    apperrors.CodeValidation,
		Message: "invalid request body: " + err.Error(),
	})
}
