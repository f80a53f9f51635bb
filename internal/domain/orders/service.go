package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

// Service places and fulfils clinical orders and answers the routing
// resolver's pending-order questions.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Place records a new pending order for an encounter.
func (s *Service) Place(ctx context.Context, o *Order) error {
	if o.EncounterID == uuid.Nil {
		return fmt.Errorf("encounter_id is required")
	}
	if !validKinds[o.Kind] {
		return fmt.Errorf("invalid order kind: %s", o.Kind)
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	return s.repo.Create(ctx, o)
}

// Complete marks an order fulfilled.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, StatusCompleted)
}

// Cancel withdraws an order so it no longer influences routing.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, StatusCancelled)
}

// ListByEncounter returns an encounter's orders oldest-first.
func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

// HasPendingOrders implements the routing resolver's order lookup.
func (s *Service) HasPendingOrders(ctx context.Context, encounterID uuid.UUID, kind encounter.OrderKind) (bool, error) {
	return s.repo.ExistsPending(ctx, encounterID, kind)
}
