package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserIDKey is where the auth middleware stores the authenticated
// member's identifier.
const ContextUserIDKey = "user_id"

// MemberID returns the authenticated member's identifier, or uuid.Nil when
// the request carries no valid identity.
func MemberID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

// ParseIDParam parses a UUID path parameter.
func ParseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}
