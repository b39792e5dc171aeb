package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
)

// UserLookup resolves profile owners.
type UserLookup interface {
	Get(ctx context.Context, id int64) (users.User, error)
}

// Service implements posting and the three feed views.
type Service struct {
	store Store
	users UserLookup
	clock func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, users UserLookup) *Service {
	return &Service{
		store: store,
		users: users,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source used for new activities.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Create stores an activity owned by userID. Input is expected to have
// passed form validation; the checks here guard the store invariants only.
func (s *Service) Create(ctx context.Context, userID int64, in NewActivity) (Activity, error) {
	if userID <= 0 {
		return Activity{}, fmt.Errorf("activities: owner required: %w", shared.ErrValidation)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Activity{}, fmt.Errorf("activities: title required: %w", shared.ErrValidation)
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return Activity{}, fmt.Errorf("activities: latitude and longitude must be paired: %w", shared.ErrValidation)
	}
	act := Activity{
		UserID:       userID,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		IsPublic:     in.IsPublic,
		Mood:         strings.TrimSpace(in.Mood),
		Category:     strings.TrimSpace(in.Category),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		LocationText: strings.TrimSpace(in.LocationText),
		CreatedAt:    s.clock(),
	}
	return s.store.Create(ctx, act)
}

// PublicFeed returns up to limit public activities, newest first.
func (s *Service) PublicFeed(ctx context.Context, limit int) ([]FeedItem, error) {
	if limit <= 0 || limit > APIFeedLimit {
		limit = APIFeedLimit
	}
	return s.store.ListPublic(ctx, limit)
}

// OwnFeed returns every activity of userID regardless of visibility.
func (s *Service) OwnFeed(ctx context.Context, userID int64) ([]FeedItem, error) {
	return s.store.ListByUser(ctx, userID, false)
}

// Profile returns the user and their public activities, or shared.ErrNotFound.
func (s *Service) Profile(ctx context.Context, userID int64) (users.User, []FeedItem, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return users.User{}, nil, err
	}
	posts, err := s.store.ListByUser(ctx, user.ID, true)
	if err != nil {
		return users.User{}, nil, err
	}
	return user, posts, nil
}
