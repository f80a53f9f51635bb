package queue

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the projection store. Rows are replaced per encounter, never
// patched in place.
type Repository interface {
	ReplaceForEncounter(ctx context.Context, encounterID uuid.UUID, rows []*ProjectionRow) error
	DeleteForEncounter(ctx context.Context, encounterID uuid.UUID) error
	ListByDashboard(ctx context.Context, dashboard Dashboard, facilityID uuid.UUID) ([]*ProjectionRow, error)
	// LoadSummaries denormalizes the patient and latest-vitals one-liners
	// shown on dashboard rows.
	LoadSummaries(ctx context.Context, encounterID uuid.UUID) (patient, vitals string, err error)
}
