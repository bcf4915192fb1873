package memory

import (
	"context"
	"sort"
	"sync"

	"quizcraze/internal/domain"
)

// UserDirectory is a static user list, used when no database is configured.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserDirectory(users ...domain.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Upsert adds or replaces a user.
func (d *UserDirectory) Upsert(user domain.User) {
	d.mu.Lock()
	d.users[user.ID] = user
	d.mu.Unlock()
}

func (d *UserDirectory) GetUser(_ context.Context, userID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (d *UserDirectory) ListUsers(_ context.Context) ([]domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
