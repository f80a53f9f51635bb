package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists encounters, their journey timeline, and the transition
// ledger. Facility scoping: a uuid.Nil facility means unscoped (system or
// super-operator access); otherwise lookups outside the facility report
// ErrNotFound rather than leaking existence.
type Repository interface {
	Create(ctx context.Context, enc *Encounter) error
	GetByID(ctx context.Context, id, facilityID uuid.UUID) (*Encounter, error)
	// GetForUpdate locks the encounter row for the duration of the enclosing
	// transaction. Must be called inside a transaction.
	GetForUpdate(ctx context.Context, id, facilityID uuid.UUID) (*Encounter, error)
	// UpdateStage writes the derived stage cache guarded by the expected
	// current stage. Returns false when the guard failed (lost a race).
	UpdateStage(ctx context.Context, id uuid.UUID, expected, next Stage, enteredAt time.Time, routing RoutingStatus) (bool, error)
	SetRoutingStatus(ctx context.Context, id uuid.UUID, status RoutingStatus) error
	ListActiveByFacility(ctx context.Context, facilityID uuid.UUID) ([]*Encounter, error)

	// Timeline
	OpenEntry(ctx context.Context, encounterID uuid.UUID) (*TimelineEntry, error)
	HasEntries(ctx context.Context, encounterID uuid.UUID) (bool, error)
	CloseEntry(ctx context.Context, entryID uuid.UUID, completedAt time.Time, completedBy *string, waitMinutes int) error
	AppendEntry(ctx context.Context, entry *TimelineEntry) error
	Timeline(ctx context.Context, encounterID uuid.UUID) ([]*TimelineEntry, error)

	// Ledger: append-only, ordered oldest-first. Never updated or deleted.
	AppendEvent(ctx context.Context, ev *StageTransitionEvent) error
	LatestEvent(ctx context.Context, encounterID uuid.UUID) (*StageTransitionEvent, error)
	Events(ctx context.Context, encounterID uuid.UUID) ([]*StageTransitionEvent, error)
}
