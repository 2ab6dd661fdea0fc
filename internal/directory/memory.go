package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryDirectory is an in-memory Directory useful for tests and local runs.
type MemoryDirectory struct {
	mu         sync.Mutex
	cost       int
	clock      func() time.Time
	principals map[string]memoryPrincipal
	roles      map[string]struct{}
}

type memoryPrincipal struct {
	Principal
	hash  string
	roles map[string]struct{}
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		cost:       bcrypt.MinCost,
		clock:      time.Now,
		principals: map[string]memoryPrincipal{},
		roles:      map[string]struct{}{},
	}
}

func (d *MemoryDirectory) FindPrincipalByEmail(ctx context.Context, email string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.principals {
		if strings.EqualFold(p.Email, email) {
			return p.Principal, nil
		}
	}
	return Principal{}, ErrNotFound
}

func (d *MemoryDirectory) FindPrincipalByID(ctx context.Context, id string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p.Principal, nil
}

func (d *MemoryDirectory) ValidateCredentials(ctx context.Context, principalID, password string) (bool, error) {
	d.mu.Lock()
	p, ok := d.principals[principalID]
	d.mu.Unlock()
	if !ok {
		return false, ErrNotFound
	}
	return comparePassword(p.hash, password)
}

func (d *MemoryDirectory) GetRoles(ctx context.Context, principalID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[principalID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]string, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (d *MemoryDirectory) AddRole(ctx context.Context, principalID, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := d.roles[role]; !ok {
		return ErrNotFound
	}
	if _, ok := p.roles[role]; ok {
		return ErrConflict
	}
	p.roles[role] = struct{}{}
	return nil
}

func (d *MemoryDirectory) RemoveRole(ctx context.Context, principalID, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := p.roles[role]; !ok {
		return ErrNotFound
	}
	delete(p.roles, role)
	return nil
}

func (d *MemoryDirectory) CreatePrincipal(ctx context.Context, email, password string) (Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Principal{}, ErrInvalidArgument
	}
	hash, err := hashPassword(password, d.cost)
	if err != nil {
		return Principal{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.principals {
		if strings.EqualFold(p.Email, email) {
			return Principal{}, ErrConflict
		}
	}
	p := Principal{ID: uuid.NewString(), Username: email, Email: email, CreatedAt: d.clock().UTC()}
	d.principals[p.ID] = memoryPrincipal{Principal: p, hash: hash, roles: map[string]struct{}{}}
	return p, nil
}

func (d *MemoryDirectory) DeletePrincipal(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.principals[id]; !ok {
		return ErrNotFound
	}
	delete(d.principals, id)
	return nil
}

func (d *MemoryDirectory) CreateRole(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidArgument
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[name]; ok {
		return ErrConflict
	}
	d.roles[name] = struct{}{}
	return nil
}

func (d *MemoryDirectory) DeleteRole(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[name]; !ok {
		return ErrNotFound
	}
	delete(d.roles, name)
	for _, p := range d.principals {
		delete(p.roles, name)
	}
	return nil
}

func (d *MemoryDirectory) RoleExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.roles[name]
	return ok, nil
}
