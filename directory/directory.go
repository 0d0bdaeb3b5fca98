// Package directory assembles the public activity listing.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"activities-api/db"
	"activities-api/models"
)

// Store is the part of the entity store the directory reads from.
type Store interface {
	SnapshotTxOptions() *sql.TxOptions
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(q *db.Queries) error) error
}

// Directory lists activities together with their registered participants.
type Directory struct {
	store Store
}

func New(store Store) *Directory {
	return &Directory{store: store}
}

// List maps each activity name to its summary. It issues exactly two queries,
// one for activities and one for all registered participants, inside a single
// read snapshot.
func (d *Directory) List(ctx context.Context) (map[string]models.ActivitySummary, error) {
	var (
		activities   []*models.Activity
		participants []db.Participant
	)
	err := d.store.WithTx(ctx, d.store.SnapshotTxOptions(), func(q *db.Queries) error {
		var err error
		if activities, err = q.ListActivities(ctx); err != nil {
			return err
		}
		participants, err = q.ListActiveParticipants(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read activity directory: %w", err)
	}

	byID := make(map[int64][]string, len(activities))
	for _, p := range participants {
		byID[p.ActivityID] = append(byID[p.ActivityID], p.Email)
	}

	result := make(map[string]models.ActivitySummary, len(activities))
	for _, a := range activities {
		emails := byID[a.ID]
		if emails == nil {
			emails = []string{}
		}
		result[a.Name] = models.ActivitySummary{
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    emails,
		}
	}
	return result, nil
}
