package policy

import (
	"fmt"

	"bondbridge/internal/auth"
)

// Policy requires one exact claim type/value pair.
type Policy struct {
	Name       string
	ClaimType  string
	ClaimValue string
}

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// ClaimSet is what the engine evaluates. auth.Claims satisfies it.
type ClaimSet interface {
	HasClaim(claimType, value string) bool
}

// Engine evaluates named policies. The table is fixed at construction.
type Engine struct {
	policies map[string]Policy
}

// DefaultPolicies maps each policy 1:1 to a role claim.
func DefaultPolicies() []Policy {
	return []Policy{
		{Name: Admin, ClaimType: auth.ClaimRole, ClaimValue: RoleAdmin},
		{Name: CommonUser, ClaimType: auth.ClaimRole, ClaimValue: RoleCommonUser},
		{Name: AppAccess, ClaimType: auth.ClaimRole, ClaimValue: RoleApp},
	}
}

func NewEngine(policies ...Policy) (*Engine, error) {
	m := make(map[string]Policy, len(policies))
	for _, p := range policies {
		if p.Name == "" || p.ClaimType == "" || p.ClaimValue == "" {
			return nil, fmt.Errorf("policy %q: name, claim type and claim value are required", p.Name)
		}
		if _, dup := m[p.Name]; dup {
			return nil, fmt.Errorf("policy %q defined twice", p.Name)
		}
		m[p.Name] = p
	}
	return &Engine{policies: m}, nil
}

// Has reports whether a policy name is configured.
func (e *Engine) Has(name string) bool {
	_, ok := e.policies[name]
	return ok
}

// Evaluate allows only if every named policy holds. Policies do not imply each
// other: admin does not satisfy common-user. Unknown names deny.
func (e *Engine) Evaluate(claims ClaimSet, names ...string) Decision {
	for _, name := range names {
		p, ok := e.policies[name]
		if !ok {
			return Deny
		}
		if claims == nil || !claims.HasClaim(p.ClaimType, p.ClaimValue) {
			return Deny
		}
	}
	return Allow
}
