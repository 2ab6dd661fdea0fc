package auth

import "github.com/golang-jwt/jwt/v5"

// Claim types carried by access tokens. Keep stable; clients and policies depend on them.
const (
	ClaimSubject = "sub"
	ClaimID      = "id"
	ClaimRole    = "rol"
)

// Claims is the only supported JWT claims shape for this service.
// Subject is the principal's username, PrincipalID the directory id.
// Roles holds one entry per role, in issuance order.
type Claims struct {
	jwt.RegisteredClaims

	PrincipalID string           `json:"id"`
	Roles       jwt.ClaimStrings `json:"rol,omitempty"`
}

// Values returns every value of the given claim type.
func (c Claims) Values(claimType string) []string {
	switch claimType {
	case ClaimSubject:
		if c.Subject == "" {
			return nil
		}
		return []string{c.Subject}
	case ClaimID:
		if c.PrincipalID == "" {
			return nil
		}
		return []string{c.PrincipalID}
	case ClaimRole:
		return []string(c.Roles)
	default:
		return nil
	}
}

// HasClaim reports whether the exact type/value pair is present.
func (c Claims) HasClaim(claimType, value string) bool {
	for _, v := range c.Values(claimType) {
		if v == value {
			return true
		}
	}
	return false
}
