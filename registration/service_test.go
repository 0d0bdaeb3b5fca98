package registration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activities-api/db"
	"activities-api/models"
	"activities-api/seed"
)

func setupSeededDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	store, err := db.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(ctx))

	catalog, err := seed.DefaultCatalog()
	require.NoError(t, err)
	_, err = seed.NewLoader(store, catalog).Run(ctx)
	require.NoError(t, err)
	return store
}

func countPair(t *testing.T, store *db.DB, email, activity string) int {
	t.Helper()
	var n int
	err := store.QueryRow(`
		SELECT COUNT(*) FROM registrations r
		JOIN users u ON u.id = r.user_id
		JOIN activities a ON a.id = r.activity_id
		WHERE u.email = ? AND a.name = ? AND r.status = 'registered'
	`, email, activity).Scan(&n)
	require.NoError(t, err)
	return n
}

func countRegistered(t *testing.T, store *db.DB, activity string) int {
	t.Helper()
	a, err := store.Queries().GetActivityByName(context.Background(), activity)
	require.NoError(t, err)
	n, err := store.Queries().CountRegistered(context.Background(), a.ID)
	require.NoError(t, err)
	return n
}

func TestSignupCreatesUser(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Chess Club", "new@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Signed up new@mergington.edu for Chess Club", res.Message())
	assert.True(t, res.UserCreated)
	assert.NotZero(t, res.RegistrationID)

	u, err := store.Queries().GetUserByEmail(ctx, "new@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "New", u.Name)
	assert.Equal(t, models.RoleStudent, u.Role)
	assert.Equal(t, 1, countPair(t, store, "new@mergington.edu", "Chess Club"))
}

func TestSignupExistingUserInAnotherActivity(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)

	// michael is seeded into Chess Club only
	res, err := svc.Signup(context.Background(), "Art Club", "michael@mergington.edu")
	require.NoError(t, err)
	assert.False(t, res.UserCreated)
	assert.Equal(t, 1, countPair(t, store, "michael@mergington.edu", "Art Club"))
}

func TestSignupTwice(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "Chess Club", "twice@mergington.edu")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "Chess Club", "twice@mergington.edu")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, KindAlreadyRegistered, KindOf(err))
	assert.Equal(t, 1, countPair(t, store, "twice@mergington.edu", "Chess Club"))
}

func TestSignupUnknownActivity(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "Underwater Basket Weaving", "nobody@mergington.edu")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Queries().GetUserByEmail(ctx, "nobody@mergington.edu")
	assert.ErrorIs(t, err, db.ErrNotFound, "no user may be created for a failed signup")
}

func TestSignupInvalidEmail(t *testing.T) {
	svc := New(setupSeededDB(t))

	for _, email := range []string{"", "   ", "not-an-email", "Bob <bob@mergington.edu>", "@mergington.edu", "bob@"} {
		t.Run(email, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), "Chess Club", email)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSignupUntilFull(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	// Chess Club: capacity 12, two seeded participants
	for i := 0; i < 10; i++ {
		_, err := svc.Signup(ctx, "Chess Club", fmt.Sprintf("student%d@mergington.edu", i))
		require.NoError(t, err, "signup %d", i)
	}

	_, err := svc.Signup(ctx, "Chess Club", "eleventh@mergington.edu")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 12, countRegistered(t, store, "Chess Club"))

	_, err = store.Queries().GetUserByEmail(ctx, "eleventh@mergington.edu")
	assert.ErrorIs(t, err, db.ErrNotFound, "rejected signup must not leave a user behind")
}

func TestUnregister(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	res, err := svc.Unregister(ctx, "Chess Club", "michael@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Unregistered michael@mergington.edu from Chess Club", res.Message())
	assert.Equal(t, 0, countPair(t, store, "michael@mergington.edu", "Chess Club"))

	_, err = svc.Unregister(ctx, "Chess Club", "michael@mergington.edu")
	assert.ErrorIs(t, err, ErrNotRegistered, "second unregister must fail")

	var rows int
	require.NoError(t, store.QueryRow(`SELECT COUNT(*) FROM registrations WHERE id = ?`, res.RegistrationID).Scan(&rows))
	assert.Zero(t, rows, "delete mode removes the row")
}

func TestUnregisterErrors(t *testing.T) {
	svc := New(setupSeededDB(t))
	ctx := context.Background()

	_, err := svc.Unregister(ctx, "Chess Club", "ghost@mergington.edu")
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = svc.Unregister(ctx, "Nope", "michael@mergington.edu")
	assert.ErrorIs(t, err, ErrNotFound)

	// emma exists but is registered elsewhere
	_, err = svc.Unregister(ctx, "Chess Club", "emma@mergington.edu")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestUnregisterCancelMode(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store, WithUnregisterMode(UnregisterCancel))
	ctx := context.Background()

	res, err := svc.Unregister(ctx, "Math Club", "james@mergington.edu")
	require.NoError(t, err)

	var status string
	require.NoError(t, store.QueryRow(`SELECT status FROM registrations WHERE id = ?`, res.RegistrationID).Scan(&status))
	assert.Equal(t, string(models.StatusCancelled), status)
	assert.Equal(t, 1, countRegistered(t, store, "Math Club"))

	_, err = svc.Unregister(ctx, "Math Club", "james@mergington.edu")
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = svc.Signup(ctx, "Math Club", "james@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, 2, countRegistered(t, store, "Math Club"))
}

func TestSignupUnregisterSignupReusesSeat(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	// Math Club: capacity 10, two seeded
	for i := 0; i < 8; i++ {
		_, err := svc.Signup(ctx, "Math Club", fmt.Sprintf("m%d@mergington.edu", i))
		require.NoError(t, err)
	}
	_, err := svc.Signup(ctx, "Math Club", "late@mergington.edu")
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = svc.Unregister(ctx, "Math Club", "m3@mergington.edu")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "Math Club", "late@mergington.edu")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "Math Club", "m3@mergington.edu")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 10, countRegistered(t, store, "Math Club"))
}

func TestFindOrCreateUser(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	u1, err := svc.FindOrCreateUser(ctx, "mary.jane@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Mary.Jane", u1.Name)

	u2, err := svc.FindOrCreateUser(ctx, "mary.jane@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)

	_, err = svc.FindOrCreateUser(ctx, "nope")
	assert.ErrorIs(t, err, ErrValidation)
}

// TestConcurrentSignups fires many signups for distinct new students at one
// activity and checks that exactly its free seats are handed out.
func TestConcurrentSignups(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	// Basketball Team: capacity 15, two seeded participants
	freeSeats := 13
	numRequests := 100

	var successCount, fullCount, errorCount int32
	var wg sync.WaitGroup
	wg.Add(numRequests)

	for i := 0; i < numRequests; i++ {
		go func(requestID int) {
			defer wg.Done()

			_, err := svc.Signup(ctx, "Basketball Team", fmt.Sprintf("gopher%d@mergington.edu", requestID))
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, ErrCapacityExceeded):
				atomic.AddInt32(&fullCount, 1)
			default:
				t.Logf("Unexpected error for request %d: %v", requestID, err)
				atomic.AddInt32(&errorCount, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, freeSeats, successCount)
	assert.EqualValues(t, numRequests-freeSeats, fullCount)
	assert.Zero(t, errorCount)
	assert.Equal(t, 15, countRegistered(t, store, "Basketball Team"))
}

// TestConcurrentSameStudent races identical signups and unregisters for one
// student and checks the pair never holds two seats.
func TestConcurrentSameStudent(t *testing.T) {
	store := setupSeededDB(t)
	svc := New(store)
	ctx := context.Background()

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(ctx, "Soccer Team", "dup@mergington.edu")
			if err == nil {
				atomic.AddInt32(&ok, 1)
			} else if !errors.Is(err, ErrAlreadyRegistered) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok)
	assert.Equal(t, 1, countPair(t, store, "dup@mergington.edu", "Soccer Team"))

	var users int
	require.NoError(t, store.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, "dup@mergington.edu").Scan(&users))
	assert.Equal(t, 1, users)

	var removed int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Unregister(ctx, "Soccer Team", "dup@mergington.edu"); err == nil {
				atomic.AddInt32(&removed, 1)
			} else if !errors.Is(err, ErrNotRegistered) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, removed)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(ErrCapacityExceeded, nil))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NotErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, KindCapacityExceeded, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	cause := errors.New("constraint")
	e := newError(ErrAlreadyRegistered, cause)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "Student is already signed up: constraint", e.Error())
}

func TestParseUnregisterMode(t *testing.T) {
	for in, want := range map[string]UnregisterMode{"": UnregisterDelete, "delete": UnregisterDelete, "CANCEL": UnregisterCancel} {
		got, err := ParseUnregisterMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseUnregisterMode("archive")
	assert.Error(t, err)
}
