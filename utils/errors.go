package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")
)

// StatusFromError maps the error taxonomy onto HTTP status codes. Anything
// outside the taxonomy is an internal error.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the error in the standard Response shape and aborts
// the gin chain. Internal errors are not echoed to the client.
func AbortWithError(c *gin.Context, err error) {
	code := StatusFromError(err)
	message := err.Error()
	if code == http.StatusInternalServerError && !errors.Is(err, ErrConfiguration) {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message})
}
