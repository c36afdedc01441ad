// Package middleware contains the cross-cutting gin middleware used by the server
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID in and out of the server
	RequestIDHeader = "X-Request-ID"
	// ContextKeyRequestID is the key for the request ID in gin context
	ContextKeyRequestID = "request_id"
)

// RequestID tags every request with an ID. An inbound X-Request-ID is kept
// when it parses as a UUID, otherwise a new one is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
