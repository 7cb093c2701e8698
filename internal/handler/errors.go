package handler

import (
	"errors"
	"net/http"

	"taxcalc/internal/engine"
	"taxcalc/internal/service"
	"taxcalc/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service and engine errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, verr.Field, verr.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, engine.ErrLookupFailed):
		// Retryable: the configuration store is unavailable
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "tax configuration temporarily unavailable"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
	}
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
