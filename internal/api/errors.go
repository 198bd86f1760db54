package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: message})
}

// abortWithError maps ledger and store errors onto status codes. Validation
// messages go back verbatim, anything unexpected is logged and hidden.
func abortWithError(c *gin.Context, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, ledger.ErrInvalidInput):
		badRequest(c, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, ledger.ErrCategoryExists):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
