package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salespilot/salespilot-go/internal/db"
	"github.com/salespilot/salespilot-go/internal/service"
)

// statusFor maps service and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, db.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, db.ErrTransactionConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail aborts the request with the mapped status. Internal errors are
// recorded on the context for the logging middleware and hidden from
// the client.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
