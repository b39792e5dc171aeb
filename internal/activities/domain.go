package activities

import "time"

const (
	// PublicFeedLimit caps the HTML public feed.
	PublicFeedLimit = 50
	// APIFeedLimit caps the JSON feed.
	APIFeedLimit = 100
)

// Activity is a single user-authored post.
type Activity struct {
	ID           int64
	UserID       int64
	Title        string
	Description  string
	IsPublic     bool
	Mood         string
	Category     string
	Latitude     *float64
	Longitude    *float64
	LocationText string
	CreatedAt    time.Time
}

// HasCoordinates reports whether both latitude and longitude are set.
func (a Activity) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// FeedItem is an activity joined with its author's display name.
type FeedItem struct {
	Activity
	AuthorName string
}

// NewActivity holds the fields accepted when posting. Ownership comes from
// the session, never from the form.
type NewActivity struct {
	Title        string
	Description  string
	IsPublic     bool
	Mood         string
	Category     string
	Latitude     *float64
	Longitude    *float64
	LocationText string
}

// FeedEntry is the JSON representation served by /api/feed.
type FeedEntry struct {
	ID           int64    `json:"id"`
	User         string   `json:"user"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Mood         string   `json:"mood"`
	Category     string   `json:"category"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	LocationText string   `json:"location_text"`
	CreatedAt    string   `json:"created_at"`
}

// NewFeedEntry flattens a feed item for the API.
func NewFeedEntry(item FeedItem) FeedEntry {
	return FeedEntry{
		ID:           item.ID,
		User:         item.AuthorName,
		Title:        item.Title,
		Description:  item.Description,
		Mood:         item.Mood,
		Category:     item.Category,
		Lat:          item.Latitude,
		Lng:          item.Longitude,
		LocationText: item.LocationText,
		CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339),
	}
}
