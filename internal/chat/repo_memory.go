package chat

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	users    map[string]ConversationUser
	groups   map[string]Group
	members  map[string]map[string]struct{}
	messages []Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:   map[string]ConversationUser{},
		groups:  map[string]Group{},
		members: map[string]map[string]struct{}{},
	}
}

func (r *MemoryRepo) ListUsers(ctx context.Context) ([]ConversationUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConversationUser, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (r *MemoryRepo) CreateUser(ctx context.Context, u ConversationUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.UserName == u.UserName {
			return ErrConflict
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemoryRepo) DeleteUserByName(ctx context.Context, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if u.UserName != userName {
			continue
		}
		delete(r.users, id)
		for _, m := range r.members {
			delete(m, id)
		}
		kept := r.messages[:0]
		for _, msg := range r.messages {
			if msg.UserID != id {
				kept = append(kept, msg)
			}
		}
		r.messages = kept
		return nil
	}
	return ErrNotFound
}

// AddGroup stores g with the given members. Members must already exist.
func (r *MemoryRepo) AddGroup(g Group, memberIDs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := map[string]struct{}{}
	for _, id := range memberIDs {
		if _, ok := r.users[id]; !ok {
			return ErrNotFound
		}
		set[id] = struct{}{}
	}
	g.Users, g.Messages = nil, nil
	r.groups[g.ID] = g
	r.members[g.ID] = set
	return nil
}

func (r *MemoryRepo) AddMessage(m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.GroupID][m.UserID]; !ok {
		return ErrNotFound
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *MemoryRepo) GroupsByUser(ctx context.Context, userID string) ([]Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Group
	for gid, set := range r.members {
		if _, ok := set[userID]; !ok {
			continue
		}
		g := r.groups[gid]
		for uid := range set {
			g.Users = append(g.Users, r.users[uid])
		}
		sort.Slice(g.Users, func(i, j int) bool { return g.Users[i].UserName < g.Users[j].UserName })
		for _, m := range r.messages {
			if m.GroupID == gid {
				g.Messages = append(g.Messages, m)
			}
		}
		sort.SliceStable(g.Messages, func(i, j int) bool { return g.Messages[i].CreatedAt.Before(g.Messages[j].CreatedAt) })
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
