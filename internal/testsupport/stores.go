// Package testsupport provides in-memory stores and an HTTP harness for
// exercising handlers without PostgreSQL.
package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moodlog/moodlog/internal/activities"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
)

// UserStore is an in-memory users.RepositoryPort with a unique email index.
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]users.User
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[int64]users.User)}
}

// Create inserts an account, rejecting duplicate emails like the unique index.
func (s *UserStore) Create(_ context.Context, in users.NewUser) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == in.Email {
			return users.User{}, shared.ErrEmailTaken
		}
	}
	s.nextID++
	u := users.User{
		ID:           s.nextID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	return u, nil
}

// FindByEmail looks an account up by its stored email.
func (s *UserStore) FindByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

// FindByID looks an account up by ID.
func (s *UserStore) FindByID(_ context.Context, id int64) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

// Count returns the number of stored accounts.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// ActivityStore is an in-memory activities.Store. Author names are resolved
// through the paired UserStore, mirroring the SQL join.
type ActivityStore struct {
	mu     sync.Mutex
	nextID int64
	items  []activities.Activity
	users  *UserStore
}

// NewActivityStore returns an empty ActivityStore joined to users.
func NewActivityStore(users *UserStore) *ActivityStore {
	return &ActivityStore{users: users}
}

// Create stores act and assigns its ID.
func (s *ActivityStore) Create(_ context.Context, act activities.Activity) (activities.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	act.ID = s.nextID
	s.items = append(s.items, act)
	return act, nil
}

// ListPublic returns the newest public activities.
func (s *ActivityStore) ListPublic(ctx context.Context, limit int) ([]activities.FeedItem, error) {
	items := s.list(ctx, func(a activities.Activity) bool { return a.IsPublic })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ListByUser returns the activities of userID, optionally public ones only.
func (s *ActivityStore) ListByUser(ctx context.Context, userID int64, publicOnly bool) ([]activities.FeedItem, error) {
	return s.list(ctx, func(a activities.Activity) bool {
		return a.UserID == userID && (!publicOnly || a.IsPublic)
	}), nil
}

// All returns every stored activity in insertion order.
func (s *ActivityStore) All() []activities.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]activities.Activity(nil), s.items...)
}

func (s *ActivityStore) list(ctx context.Context, keep func(activities.Activity) bool) []activities.FeedItem {
	s.mu.Lock()
	matched := make([]activities.Activity, 0, len(s.items))
	for _, a := range s.items {
		if keep(a) {
			matched = append(matched, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	items := make([]activities.FeedItem, 0, len(matched))
	for _, a := range matched {
		item := activities.FeedItem{Activity: a}
		if s.users != nil {
			if u, err := s.users.FindByID(ctx, a.UserID); err == nil {
				item.AuthorName = u.Name
			}
		}
		items = append(items, item)
	}
	return items
}

// Clock hands out strictly increasing timestamps.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock starts at start and advances by step after every reading.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start.UTC(), step: step}
}

// Now returns the current reading and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

var (
	_ users.RepositoryPort = (*UserStore)(nil)
	_ activities.Store     = (*ActivityStore)(nil)
)
