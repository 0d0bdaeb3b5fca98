package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activities-api/models"
)

// Participant is an active registration joined to its user's email.
type Participant struct {
	ActivityID int64
	Email      string
}

// GetActiveRegistration returns the registered (seat-holding) registration
// for the pair, or ErrNotFound.
func (q *Queries) GetActiveRegistration(ctx context.Context, userID, activityID int64) (*models.Registration, error) {
	var (
		r      models.Registration
		status string
	)
	err := q.queryRow(ctx, `
		SELECT id, user_id, activity_id, status, registration_date
		FROM registrations
		WHERE user_id = ? AND activity_id = ? AND status = ?
	`, userID, activityID, string(models.StatusRegistered)).Scan(&r.ID, &r.UserID, &r.ActivityID, &status, &r.RegistrationDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	if r.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRegistered returns the number of seats taken in an activity.
func (q *Queries) CountRegistered(ctx context.Context, activityID int64) (int, error) {
	var n int
	err := q.queryRow(ctx, `
		SELECT COUNT(*) FROM registrations WHERE activity_id = ? AND status = ?
	`, activityID, string(models.StatusRegistered)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

// InsertRegistrationIfCapacity inserts a registered row only while the
// activity still has a free seat. The count and the insert are one statement,
// so no other writer can slip in between them. ok is false when the activity
// is full.
func (q *Queries) InsertRegistrationIfCapacity(ctx context.Context, userID, activityID int64) (id int64, ok bool, err error) {
	userParam, dateParam := "?", "?"
	if q.d == dialectPostgres {
		// Parameters in a SELECT list carry no type information on Postgres.
		userParam, dateParam = "CAST(? AS BIGINT)", "CAST(? AS TIMESTAMPTZ)"
	}

	err = q.queryRow(ctx, `
		INSERT INTO registrations (user_id, activity_id, status, registration_date)
		SELECT `+userParam+`, a.id, 'registered', `+dateParam+`
		FROM activities a
		WHERE a.id = ?
		  AND (SELECT COUNT(*) FROM registrations r
		       WHERE r.activity_id = a.id AND r.status = 'registered') < a.max_participants
		RETURNING id
	`, userID, time.Now().UTC(), activityID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to insert registration: %w", err)
	}
	return id, true, nil
}

// DeleteRegistration removes a registered row. It reports false when the row
// was already gone or no longer registered.
func (q *Queries) DeleteRegistration(ctx context.Context, id int64) (bool, error) {
	res, err := q.exec(ctx, `DELETE FROM registrations WHERE id = ? AND status = ?`, id, string(models.StatusRegistered))
	if err != nil {
		return false, fmt.Errorf("failed to delete registration: %w", err)
	}
	return affectedOne(res)
}

// CancelRegistration moves a registered row to cancelled, keeping it as history.
func (q *Queries) CancelRegistration(ctx context.Context, id int64) (bool, error) {
	res, err := q.exec(ctx, `
		UPDATE registrations SET status = ?
		WHERE id = ? AND status = ?
	`, string(models.StatusCancelled), id, string(models.StatusRegistered))
	if err != nil {
		return false, fmt.Errorf("failed to cancel registration: %w", err)
	}
	return affectedOne(res)
}

// ListActiveParticipants returns every registered participant across all
// activities in a single query, ordered by activity and then by signup order.
func (q *Queries) ListActiveParticipants(ctx context.Context) ([]Participant, error) {
	rows, err := q.query(ctx, `
		SELECT r.activity_id, u.email
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.status = ?
		ORDER BY r.activity_id, r.id
	`, string(models.StatusRegistered))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ActivityID, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
