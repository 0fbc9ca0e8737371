package orchestrator

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// newID mints a new random identifier for a run, doc, or conversation row.
func newID() string { return uuid.New().String() }

// userIDFromRequest resolves the caller's identity. Authentication itself is
// out of scope (§1 Non-goals); callers pass their identity via this header,
// mirroring a reverse-proxy/SSO setup that injects it upstream.
func userIDFromRequest(c *gin.Context) string {
	if u := c.GetHeader("X-User-Id"); u != "" {
		return u
	}
	return "anonymous"
}
