package activities

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store defines persistence operations for activities.
type Store interface {
	Create(ctx context.Context, act Activity) (Activity, error)
	ListPublic(ctx context.Context, limit int) ([]FeedItem, error)
	ListByUser(ctx context.Context, userID int64, publicOnly bool) ([]FeedItem, error)
}

// Repository implements Store using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const feedColumns = `a.id, a.user_id, a.title, a.description, a.is_public, a.mood, a.category,
	a.latitude, a.longitude, a.location_text, a.created_at, u.name`

// Create inserts act and returns it with the generated ID.
func (r *Repository) Create(ctx context.Context, act Activity) (Activity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO activities (user_id, title, description, is_public, mood, category, latitude, longitude, location_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		act.UserID, act.Title, optionalText(act.Description), act.IsPublic, optionalText(act.Mood), optionalText(act.Category),
		act.Latitude, act.Longitude, optionalText(act.LocationText), act.CreatedAt,
	)
	if err := row.Scan(&act.ID); err != nil {
		return Activity{}, fmt.Errorf("activities: insert: %w", err)
	}
	return act, nil
}

// ListPublic returns the newest public activities.
func (r *Repository) ListPublic(ctx context.Context, limit int) ([]FeedItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+feedColumns+`
		FROM activities a
		JOIN users u ON u.id = a.user_id
		WHERE a.is_public
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("activities: list public: %w", err)
	}
	return collectFeed(rows)
}

// ListByUser returns every activity owned by userID, newest first. With
// publicOnly the private ones are left out.
func (r *Repository) ListByUser(ctx context.Context, userID int64, publicOnly bool) ([]FeedItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+feedColumns+`
		FROM activities a
		JOIN users u ON u.id = a.user_id
		WHERE a.user_id = $1 AND (a.is_public OR NOT $2)
		ORDER BY a.created_at DESC, a.id DESC`, userID, publicOnly)
	if err != nil {
		return nil, fmt.Errorf("activities: list by user: %w", err)
	}
	return collectFeed(rows)
}

func collectFeed(rows pgx.Rows) ([]FeedItem, error) {
	defer rows.Close()
	items := make([]FeedItem, 0)
	for rows.Next() {
		var item FeedItem
		var description, mood, category, locationText pgtype.Text
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Title, &description, &item.IsPublic, &mood, &category,
			&item.Latitude, &item.Longitude, &locationText, &item.CreatedAt, &item.AuthorName,
		); err != nil {
			return nil, fmt.Errorf("activities: scan: %w", err)
		}
		item.Description = description.String
		item.Mood = mood.String
		item.Category = category.String
		item.LocationText = locationText.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activities: rows: %w", err)
	}
	return items, nil
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

var _ Store = (*Repository)(nil)
