// Package gate rejects requests that do not carry the shared-secret header.
//
// The gate runs before bearer verification and before routing, so every request,
// sign-in included, must pass it.
package gate

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"bondbridge/internal/apperr"
	"bondbridge/internal/config"

	"github.com/gin-gonic/gin"
)

// HeaderName is the fixed header carrying the gate secret.
const HeaderName = "CodedByKay-BondBridge-header"

type Gate struct {
	secret []byte
}

func New(cfg config.GateConfig) (*Gate, error) {
	if cfg.Secret == "" {
		return nil, errors.New("GATE_SECRET is required")
	}
	return &Gate{secret: []byte(cfg.Secret)}, nil
}

// Check returns an unauthorized *apperr.Error when the header is absent or wrong.
func (g *Gate) Check(h http.Header) error {
	values, ok := h[http.CanonicalHeaderKey(HeaderName)]
	if !ok || len(values) == 0 {
		return apperr.Unauthorized("missing gate header")
	}
	if subtle.ConstantTimeCompare([]byte(values[0]), g.secret) != 1 {
		return apperr.Unauthorized("invalid gate header")
	}
	return nil
}

// Middleware aborts with 401 before any later handler runs.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := g.Check(c.Request.Header); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": http.StatusUnauthorized, "error": apperr.PublicMessage(err)})
			return
		}
		c.Next()
	}
}
