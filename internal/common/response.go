package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "requestID"

// MessageResponse is the JSON body of a successful call.
type MessageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the JSON body of a failed call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Success sends a successful JSON response with a message and optional data.
func Success(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, MessageResponse{
		Message: message,
		Data:    data,
	})
}

// Error sends an error JSON response.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// HandleError inspects a domain error and sends the appropriate HTTP response.
// Uses errors.As to traverse the full error chain, supporting wrapped errors.
func HandleError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		Error(c, status, "internal server error")
		return
	}
	Error(c, status, err.Error())
}

// StatusFor maps an error from the taxonomy to an HTTP status code.
func StatusFor(err error) int {
	var notFound *NotFoundError
	var validation *ValidationError
	var unauthorized *UnauthorizedError
	var delivery *DeliveryError
	var network *NetworkError
	var limited *RateLimitedError
	var timeout *AnswerTimeoutError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &limited):
		return http.StatusTooManyRequests
	case errors.As(err, &delivery), errors.As(err, &network):
		return http.StatusBadGateway
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
