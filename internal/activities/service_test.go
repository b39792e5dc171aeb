package activities_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlog/moodlog/internal/activities"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/testsupport"
	"github.com/moodlog/moodlog/internal/users"
)

type fixture struct {
	svc   *activities.Service
	users *testsupport.UserStore
	store *testsupport.ActivityStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	userStore := testsupport.NewUserStore()
	store := testsupport.NewActivityStore(userStore)
	clock := testsupport.NewClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), time.Minute)
	svc := activities.NewService(store, users.NewService(userStore)).WithClock(clock.Now)
	return fixture{svc: svc, users: userStore, store: store}
}

func (f fixture) user(t *testing.T, name, email string) users.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), users.NewUser{Name: name, Email: email, PasswordHash: "x"})
	require.NoError(t, err)
	return u
}

func (f fixture) post(t *testing.T, userID int64, title string, public bool) activities.Activity {
	t.Helper()
	act, err := f.svc.Create(context.Background(), userID, activities.NewActivity{Title: title, IsPublic: public})
	require.NoError(t, err)
	return act
}

func titles(items []activities.FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann", "ann@x.com")
	lat := 10.0
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 0, activities.NewActivity{Title: "orphan"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, ann.ID, activities.NewActivity{Title: "  "})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, ann.ID, activities.NewActivity{Title: "half located", Latitude: &lat})
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.Empty(t, f.store.All())
}

func TestCreateStampsOwnerAndTime(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann", "ann@x.com")

	act := f.post(t, ann.ID, "Ran 5k", true)
	assert.NotZero(t, act.ID)
	assert.Equal(t, ann.ID, act.UserID)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), act.CreatedAt)
}

func TestPublicFeedExcludesPrivateAndOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann", "ann@x.com")
	bob := f.user(t, "Bob", "bob@x.com")

	f.post(t, ann.ID, "T1", true)
	f.post(t, bob.ID, "hidden", false)
	f.post(t, bob.ID, "T2", true)
	f.post(t, ann.ID, "T3", true)

	feed, err := f.svc.PublicFeed(context.Background(), activities.PublicFeedLimit)
	require.NoError(t, err)
	assert.Equal(t, []string{"T3", "T2", "T1"}, titles(feed))
	assert.Equal(t, "Ann", feed[0].AuthorName)
	assert.Equal(t, "Bob", feed[1].AuthorName)
}

func TestPublicFeedClampsLimit(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann", "ann@x.com")
	for i := 0; i < activities.APIFeedLimit+5; i++ {
		f.post(t, ann.ID, "run", true)
	}

	feed, err := f.svc.PublicFeed(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, feed, activities.APIFeedLimit)

	feed, err = f.svc.PublicFeed(context.Background(), activities.PublicFeedLimit)
	require.NoError(t, err)
	assert.Len(t, feed, activities.PublicFeedLimit)
}

func TestOwnFeedIncludesPrivate(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann", "ann@x.com")
	bob := f.user(t, "Bob", "bob@x.com")

	f.post(t, ann.ID, "Ran 5k", true)
	f.post(t, ann.ID, "Private note", false)
	f.post(t, bob.ID, "Bob's walk", true)

	feed, err := f.svc.OwnFeed(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Private note", "Ran 5k"}, titles(feed))
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann", "ann@x.com")
	f.post(t, ann.ID, "Ran 5k", true)
	f.post(t, ann.ID, "Private note", false)

	user, posts, err := f.svc.Profile(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, []string{"Ran 5k"}, titles(posts))

	_, _, err = f.svc.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
