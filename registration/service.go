// Package registration implements signing students up for activities and
// releasing their seats, keeping every activity within its capacity.
package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"activities-api/ctxlog"
	"activities-api/db"
	"activities-api/models"
)

// Store is the part of the entity store the service needs.
type Store interface {
	Queries() *db.Queries
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(q *db.Queries) error) error
}

// UnregisterMode selects what unregistering does to the registration row.
type UnregisterMode string

const (
	// UnregisterDelete removes the row.
	UnregisterDelete UnregisterMode = "delete"
	// UnregisterCancel keeps the row with status cancelled.
	UnregisterCancel UnregisterMode = "cancel"
)

// ParseUnregisterMode validates a configured mode. The empty string means
// UnregisterDelete.
func ParseUnregisterMode(s string) (UnregisterMode, error) {
	switch m := UnregisterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return UnregisterDelete, nil
	case UnregisterDelete, UnregisterCancel:
		return m, nil
	}
	return "", fmt.Errorf("unknown unregister mode %q (want %q or %q)", s, UnregisterDelete, UnregisterCancel)
}

// Action is what a successful call did.
type Action int

const (
	ActionSignedUp Action = iota
	ActionUnregistered
)

// Result confirms a successful signup or unregister.
type Result struct {
	Action         Action
	Activity       string
	Email          string
	RegistrationID int64
	UserCreated    bool
}

// Message is the confirmation text shown to the student.
func (r *Result) Message() string {
	switch r.Action {
	case ActionSignedUp:
		return fmt.Sprintf("Signed up %s for %s", r.Email, r.Activity)
	case ActionUnregistered:
		return fmt.Sprintf("Unregistered %s from %s", r.Email, r.Activity)
	}
	return ""
}

// Option configures a Service.
type Option func(*Service)

// WithUnregisterMode sets how Unregister terminates a registration.
func WithUnregisterMode(m UnregisterMode) Option {
	return func(s *Service) { s.mode = m }
}

// Service is the only writer of registrations.
type Service struct {
	store Store
	mode  UnregisterMode
}

// New creates a Service backed by store.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, mode: UnregisterDelete}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers email for the named activity. The user is created on first
// use. The seat check and the insert run in one transaction holding the
// activity, so concurrent signups can never overfill it; on any failure the
// transaction is rolled back and no user or registration is left behind.
func (s *Service) Signup(ctx context.Context, activityName, email string) (*Result, error) {
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("activity", activityName, "email", email)

	res := &Result{Action: ActionSignedUp, Activity: activityName, Email: email}
	err = s.store.WithTx(ctx, nil, func(q *db.Queries) error {
		activity, err := q.LockActivityByName(ctx, activityName)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return newError(ErrNotFound, nil)
			}
			return err
		}

		user, created, err := q.FindOrCreateUser(ctx, email, models.NameFromEmail(email), models.RoleStudent)
		if err != nil {
			return err
		}
		res.UserCreated = created

		_, err = q.GetActiveRegistration(ctx, user.ID, activity.ID)
		switch {
		case err == nil:
			return newError(ErrAlreadyRegistered, nil)
		case !errors.Is(err, db.ErrNotFound):
			return err
		}

		id, ok, err := q.InsertRegistrationIfCapacity(ctx, user.ID, activity.ID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return newError(ErrAlreadyRegistered, err)
			}
			return err
		}
		if !ok {
			return newError(ErrCapacityExceeded, nil)
		}
		res.RegistrationID = id
		return nil
	})
	if err != nil {
		if k := KindOf(err); k != "" {
			logger.Info("signup rejected", "kind", k)
		} else {
			logger.Error("signup failed", "error", err)
		}
		return nil, err
	}

	logger.Info("student signed up", "registration_id", res.RegistrationID, "user_created", res.UserCreated)
	return res, nil
}

// Unregister releases the seat email holds in the named activity. Repeating
// it after success returns ErrNotRegistered.
func (s *Service) Unregister(ctx context.Context, activityName, email string) (*Result, error) {
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("activity", activityName, "email", email)

	res := &Result{Action: ActionUnregistered, Activity: activityName, Email: email}
	err = s.store.WithTx(ctx, nil, func(q *db.Queries) error {
		activity, err := q.LockActivityByName(ctx, activityName)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return newError(ErrNotFound, nil)
			}
			return err
		}

		user, err := q.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return newError(ErrNotRegistered, nil)
			}
			return err
		}

		reg, err := q.GetActiveRegistration(ctx, user.ID, activity.ID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return newError(ErrNotRegistered, nil)
			}
			return err
		}

		var removed bool
		switch s.mode {
		case UnregisterCancel:
			removed, err = q.CancelRegistration(ctx, reg.ID)
		case UnregisterDelete:
			removed, err = q.DeleteRegistration(ctx, reg.ID)
		default:
			return fmt.Errorf("unknown unregister mode %q", s.mode)
		}
		if err != nil {
			return err
		}
		if !removed {
			return newError(ErrNotRegistered, nil)
		}
		res.RegistrationID = reg.ID
		return nil
	})
	if err != nil {
		if k := KindOf(err); k != "" {
			logger.Info("unregister rejected", "kind", k)
		} else {
			logger.Error("unregister failed", "error", err)
		}
		return nil, err
	}

	logger.Info("student unregistered", "registration_id", res.RegistrationID, "mode", s.mode)
	return res, nil
}

// FindOrCreateUser returns the student for email, creating it with a name
// derived from the address when missing. It is safe to call concurrently and
// repeatedly for the same email; exactly one row is ever created.
func (s *Service) FindOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	user, _, err := s.store.Queries().FindOrCreateUser(ctx, email, models.NameFromEmail(email), models.RoleStudent)
	return user, err
}

// validateEmail accepts a bare address such as "a@b.edu" and rejects display
// names, missing domains and surrounding angle brackets.
func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", &Error{Kind: KindValidation, Message: "Email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", newError(ErrValidation, err)
	}
	return email, nil
}
