package directory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"activities-api/db"
	"activities-api/models"
	"activities-api/registration"
	"activities-api/seed"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	store, err := db.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(ctx))
	return store
}

func TestListEmpty(t *testing.T) {
	got, err := New(setupTestDB(t)).List(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListAfterSeed(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	catalog, err := seed.DefaultCatalog()
	require.NoError(t, err)
	_, err = seed.NewLoader(store, catalog).Run(ctx)
	require.NoError(t, err)

	got, err := New(store).List(ctx)
	require.NoError(t, err)

	want := make(map[string]models.ActivitySummary, len(catalog.Activities))
	for _, a := range catalog.Activities {
		want[a.Name] = models.ActivitySummary{
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    a.Participants,
		}
	}
	require.Len(t, got, 9)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestListReflectsSignupsInOrder(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	q := store.Queries()

	require.NoError(t, q.CreateActivity(ctx, &models.Activity{Name: "Chess Club", Description: "Chess", Schedule: "Fridays", MaxParticipants: 3}))
	require.NoError(t, q.CreateActivity(ctx, &models.Activity{Name: "Art Club", Description: "Art", Schedule: "Thursdays", MaxParticipants: 2}))

	svc := registration.New(store)
	for _, email := range []string{"zoe@mergington.edu", "adam@mergington.edu", "mia@mergington.edu"} {
		_, err := svc.Signup(ctx, "Chess Club", email)
		require.NoError(t, err)
	}
	_, err := svc.Unregister(ctx, "Chess Club", "adam@mergington.edu")
	require.NoError(t, err)

	got, err := New(store).List(ctx)
	require.NoError(t, err)

	want := map[string]models.ActivitySummary{
		"Chess Club": {Description: "Chess", Schedule: "Fridays", MaxParticipants: 3, Participants: []string{"zoe@mergington.edu", "mia@mergington.edu"}},
		"Art Club":   {Description: "Art", Schedule: "Thursdays", MaxParticipants: 2, Participants: []string{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}
