package policy

import (
	"fmt"
	"net/http"

	"bondbridge/internal/auth"

	"github.com/gin-gonic/gin"
)

// Require guards a route with one or more policies; all must hold.
// It expects auth.RequireAccessToken earlier in the chain.
//
// Unknown policy names are a wiring mistake and panic at route setup.
func (e *Engine) Require(names ...string) gin.HandlerFunc {
	if len(names) == 0 {
		panic("policy.Require: at least one policy name is required")
	}
	for _, n := range names {
		if !e.Has(n) {
			panic(fmt.Sprintf("policy.Require: unknown policy %q", n))
		}
	}
	required := append([]string(nil), names...)

	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": http.StatusUnauthorized, "error": "authentication required"})
			return
		}
		if e.Evaluate(claims, required...) == Deny {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": http.StatusForbidden, "error": "forbidden"})
			return
		}
		c.Next()
	}
}
