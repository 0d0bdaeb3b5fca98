// Package seed populates an empty database with the initial activity catalog.
package seed

import (
	"context"
	"database/sql"
	"fmt"

	"activities-api/ctxlog"
	"activities-api/db"
	"activities-api/models"
)

// Store is the part of the entity store the loader writes through.
type Store interface {
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(q *db.Queries) error) error
}

// Report summarises what a Run did.
type Report struct {
	Skipped       bool
	Existing      int
	Activities    int
	Users         int
	Registrations int
}

// Loader writes a Catalog into the store once.
type Loader struct {
	store   Store
	catalog *Catalog
}

func NewLoader(store Store, catalog *Catalog) *Loader {
	return &Loader{store: store, catalog: catalog}
}

// Run inserts the catalog when the activities table is empty and does nothing
// otherwise. Everything is written in one transaction.
func (l *Loader) Run(ctx context.Context) (Report, error) {
	logger := ctxlog.FromContext(ctx)

	var report Report
	err := l.store.WithTx(ctx, nil, func(q *db.Queries) error {
		report = Report{}

		existing, err := q.CountActivities(ctx)
		if err != nil {
			return err
		}
		if existing > 0 {
			report.Skipped = true
			report.Existing = existing
			return nil
		}

		for _, ca := range l.catalog.Activities {
			activity := ca.model()
			if err := q.CreateActivity(ctx, activity); err != nil {
				return err
			}
			report.Activities++

			for _, email := range ca.Participants {
				user, created, err := q.FindOrCreateUser(ctx, email, models.NameFromEmail(email), models.RoleStudent)
				if err != nil {
					return err
				}
				if created {
					report.Users++
				}

				_, ok, err := q.InsertRegistrationIfCapacity(ctx, user.ID, activity.ID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("activity %q is full before seeding %s", activity.Name, email)
				}
				report.Registrations++
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Another process seeded between our count and our inserts.
			logger.Info("Seed catalog already loaded by another instance. Skipping.")
			return Report{Skipped: true}, nil
		}
		return Report{}, fmt.Errorf("failed to seed database: %w", err)
	}

	if report.Skipped {
		logger.Info("Database already has activities. Skipping seed.", "activities", report.Existing)
	} else {
		logger.Info("Seeded database.", "activities", report.Activities, "users", report.Users, "registrations", report.Registrations)
	}
	return report, nil
}
