package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activities-api/models"
)

// FindOrCreateUser returns the user with the given email, inserting it first
// when it does not exist. Concurrent calls for the same email converge on a
// single row through the UNIQUE(email) constraint. created is true only for
// the caller whose insert won.
func (q *Queries) FindOrCreateUser(ctx context.Context, email, name string, role models.Role) (user *models.User, created bool, err error) {
	res, err := q.exec(ctx, `
		INSERT INTO users (email, name, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
	`, email, name, string(role), time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	user, err = q.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return user, n == 1, nil
}

// GetUserByEmail retrieves a user by their email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := q.queryRow(ctx, `
		SELECT id, email, name, role, created_at
		FROM users
		WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}
