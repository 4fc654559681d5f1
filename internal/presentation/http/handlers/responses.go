// Package handlers provides the HTTP handlers of the builder API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/persistence/projectfile"
)

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrDuplicateID),
		errors.Is(err, document.ErrDuplicateName),
		errors.Is(err, document.ErrCycle):
		return http.StatusConflict
	case errors.Is(err, document.ErrInvalidReference),
		errors.Is(err, document.ErrInvalidValue),
		errors.Is(err, media.ErrUnsupportedData),
		errors.Is(err, media.ErrEmptyCrop):
		return http.StatusUnprocessableEntity
	case errors.Is(err, projectfile.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status it maps to and records it on the
// gin context for the request logger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// bindError answers a request whose body or query failed to bind.
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large", "limit": tooLarge.Limit})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
}

// intParam reads a numeric path parameter, answering 400 when it is not one.
func intParam(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer", "value": raw})
		return 0, false
	}
	return id, true
}

// optionalIntQuery reads a numeric query parameter. An absent parameter is
// nil; a malformed one answers 400.
func optionalIntQuery(c *gin.Context, name string) (*int, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer", "value": raw})
		return nil, false
	}
	return &v, true
}
