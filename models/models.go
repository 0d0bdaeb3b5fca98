package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Role is the kind of account a User holds. Only RoleStudent is assigned
// today; RoleAdmin is reserved for an organizer path.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a stored value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Status is the state of a Registration.
// StatusWaitlisted is reserved: no code path produces it yet.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus converts a stored value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown registration status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusWaitlisted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the registration holds a seat.
func (s Status) Active() bool {
	switch s {
	case StatusRegistered:
		return true
	case StatusWaitlisted, StatusCancelled:
		return false
	}
	return false
}

func (s Status) String() string { return string(s) }

// User represents a student (or admin) identified by email.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is an extracurricular offering with a seat limit.
type Activity struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Schedule        string    `json:"schedule"`
	MaxParticipants int       `json:"max_participants"`
	Location        *string   `json:"location,omitempty"`
	Duration        *string   `json:"duration,omitempty"`
	OrganizerID     *int64    `json:"organizer_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsFull returns true when registered already fills every seat.
func (a *Activity) IsFull(registered int) bool {
	return registered >= a.MaxParticipants
}

// Remaining returns the number of free seats, never negative.
func (a *Activity) Remaining(registered int) int {
	if n := a.MaxParticipants - registered; n > 0 {
		return n
	}
	return 0
}

// Registration links a User to an Activity.
type Registration struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ActivityID       int64     `json:"activity_id"`
	Status           Status    `json:"status"`
	RegistrationDate time.Time `json:"registration_date"`
}

// ActivitySummary is one entry of the public activity listing.
type ActivitySummary struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// NameFromEmail derives a display name from the local part of an address.
// Letters that follow a non-letter are upper-cased and the rest lower-cased,
// so "mary.jane@x" becomes "Mary.Jane".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	b.Grow(len(local))
	prevLetter := false
	for _, r := range local {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
