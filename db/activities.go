package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activities-api/models"
)

const activityColumns = `id, name, description, schedule, max_participants, location, duration, organizer_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	var (
		a           models.Activity
		location    sql.NullString
		duration    sql.NullString
		organizerID sql.NullInt64
	)
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Schedule,
		&a.MaxParticipants,
		&location,
		&duration,
		&organizerID,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if location.Valid {
		a.Location = &location.String
	}
	if duration.Valid {
		a.Duration = &duration.String
	}
	if organizerID.Valid {
		a.OrganizerID = &organizerID.Int64
	}
	return &a, nil
}

// CreateActivity inserts a new activity and fills in its ID and timestamps.
func (q *Queries) CreateActivity(ctx context.Context, a *models.Activity) error {
	now := time.Now().UTC()
	err := q.queryRow(ctx, `
		INSERT INTO activities (name, description, schedule, max_participants, location, duration, organizer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, a.Name, a.Description, a.Schedule, a.MaxParticipants, a.Location, a.Duration, a.OrganizerID, now, now).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create activity %q: %w", a.Name, err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetActivityByName retrieves an activity by its unique name.
func (q *Queries) GetActivityByName(ctx context.Context, name string) (*models.Activity, error) {
	a, err := scanActivity(q.queryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// LockActivityByName reads an activity and holds it exclusively until the
// surrounding transaction ends. On Postgres this is a row lock, so only
// transactions touching the same activity wait for each other. SQLite admits
// a single writer per database, which already serialises the transaction.
func (q *Queries) LockActivityByName(ctx context.Context, name string) (*models.Activity, error) {
	if !q.inTx {
		return nil, errors.New("LockActivityByName requires a transaction")
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE name = ?`
	if q.d == dialectPostgres {
		query += ` FOR UPDATE`
	}

	a, err := scanActivity(q.queryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock activity: %w", err)
	}
	return a, nil
}

// CountActivities returns the number of stored activities.
func (q *Queries) CountActivities(ctx context.Context) (int, error) {
	var n int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return n, nil
}

// ListActivities lists all activities in creation order.
func (q *Queries) ListActivities(ctx context.Context) ([]*models.Activity, error) {
	rows, err := q.query(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return activities, nil
}
