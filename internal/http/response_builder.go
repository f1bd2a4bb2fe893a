// Package http exposes the ledger as a JSON API.
//
// This file maps domain errors onto HTTP statuses and response bodies so
// every handler reports failures the same way.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LiftThanakorn/income-expense-tracker/internal/auth"
	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Category string `json:"category,omitempty"`
}

// statusFor maps the error taxonomy onto a status code.
func statusFor(err error) int {
	var inUse *core.CategoryInUseError
	switch {
	case errors.Is(err, core.ErrNoSession),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case core.IsValidation(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &inUse), errors.Is(err, core.ErrInFlight):
		return http.StatusConflict
	case core.IsAdapter(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err for the client. Server-side failures get a generic
// message; the detail goes to the log only.
func errorBody(status int, err error) ErrorResponse {
	var body ErrorResponse
	var vErr *core.ValidationError
	var inUse *core.CategoryInUseError

	switch {
	case errors.As(err, &vErr):
		body.Error = vErr.Message
		body.Field = vErr.Field
	case errors.As(err, &inUse):
		body.Error = "category is referenced by a budget"
		body.Category = inUse.Category
	case status == http.StatusUnauthorized && errors.Is(err, auth.ErrInvalidCredentials):
		body.Error = "invalid email or password"
	case status == http.StatusUnauthorized:
		body.Error = "authentication required"
	case status == http.StatusBadGateway:
		body.Error = "analysis service unavailable"
	case status >= http.StatusInternalServerError:
		body.Error = "internal error"
	default:
		body.Error = err.Error()
	}
	return body
}

// respondError writes err and aborts the chain. 5xx replies are logged
// with the full error.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(c.Request.Context()).
			WithComponent(log.ComponentHTTP).
			ErrorContext(c.Request.Context(), "Request failed",
				log.FieldError, err, log.FieldMethod, c.Request.Method, log.FieldPath, c.FullPath())
	}
	c.AbortWithStatusJSON(status, errorBody(status, err))
}

// badRequest reports an undecodable body or parameter.
func badRequest(c *gin.Context, field, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message, Field: field})
}
