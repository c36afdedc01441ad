// Package apierr maps service errors onto HTTP responses.
package apierr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ValidationError is returned when a request cannot be applied as given
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError, optionally naming the offending field
func Invalid(message string, field ...string) *ValidationError {
	e := &ValidationError{Message: message}
	if len(field) > 0 {
		e.Fields = map[string]string{field[0]: message}
	}
	return e
}

// NotFoundError is returned when a referenced record does not exist
// or is not visible to the caller
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NotFound builds a NotFoundError for the named resource
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ForbiddenError is returned when the caller may not act on a record
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// Forbidden builds a ForbiddenError
func Forbidden(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// Unavailable reports whether err means the data store could not be reached
func Unavailable(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Status returns the HTTP status for err
func Status(err error) int {
	var ve *ValidationError
	var nf *NotFoundError
	var fe *ForbiddenError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.As(err, &fe):
		return http.StatusForbidden
	case Unavailable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error body and aborts the request
func Respond(c *gin.Context, err error) {
	status := Status(err)
	switch status {
	case http.StatusBadRequest:
		var ve *ValidationError
		errors.As(err, &ve)
		body := gin.H{"error": ve.Message}
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
		c.AbortWithStatusJSON(status, body)
	case http.StatusNotFound, http.StatusForbidden:
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
	case http.StatusServiceUnavailable:
		zap.L().Warn("Data store unavailable", zap.Error(err), zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(status, gin.H{"error": "Service temporarily unavailable"})
	default:
		zap.L().Error("Unhandled error", zap.Error(err), zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
	}
}

// FromBinding converts a gin binding error into a ValidationError.
// Struct validation failures keep their per-field detail.
func FromBinding(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: "Invalid request body"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[toSnake(fe.Field())] = describe(fe)
	}
	return &ValidationError{Message: "Invalid request", Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "required_without":
		return "This field is required when " + toSnake(fe.Param()) + " is not provided."
	case "min":
		return "Must be at least " + fe.Param() + "."
	case "max":
		return "Must be at most " + fe.Param() + "."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	case "orientation":
		return "Must be one of: straight gay bi trans sfw."
	case "access":
		return "Must be one of: private public adult."
	case "report_type":
		return "Must be one of: broken_source broken_thumbnail broken_embed wrong_orientation request_moderation."
	}
	return "Invalid value."
}

func toSnake(name string) string {
	var b strings.Builder
	var prevLower bool
	for _, r := range name {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return b.String()
}
