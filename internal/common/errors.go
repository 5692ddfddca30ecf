package common

import (
	"fmt"
	"time"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// ConfigurationError indicates the process cannot start with the loaded configuration.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// TemplateNotFoundError indicates a template name that is not in the registry.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.Name)
}

// DeliveryError indicates the webhook answered with a non-2xx status.
type DeliveryError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s webhook returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s webhook returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NetworkError indicates a transport failure while talking to the webhook.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s webhook request failed: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UploadError indicates an image could not be uploaded.
type UploadError struct {
	Source string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading image %s: %v", e.Source, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// AnswerTimeoutError indicates nobody answered a question in time.
type AnswerTimeoutError struct {
	QuestionID string
	Timeout    time.Duration
}

func (e *AnswerTimeoutError) Error() string {
	return fmt.Sprintf("Question timed out after %d seconds", int(e.Timeout/time.Second))
}

// RateLimitedError indicates a delivery was refused by the outbound limiter.
type RateLimitedError struct {
	Destination string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for destination: %s", e.Destination)
}
