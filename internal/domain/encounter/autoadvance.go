package encounter

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zelalemgb/linkclinic/internal/platform/db"
)

// AutoAdvance moves an encounter out of a payment stage once every
// outstanding charge is settled. It is invoked best-effort after a settlement
// commits: a no-op when the encounter is not in a payment stage or charges
// remain, otherwise the same atomic transition as staff advancement, applied
// as the system (nil actor) with routing left awaiting staff acknowledgement.
func (s *Service) AutoAdvance(ctx context.Context, encounterID uuid.UUID) error {
	var advanced bool
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		j, err := s.loadJourney(ctx, encounterID, uuid.Nil)
		if err != nil {
			return err
		}
		if !j.current.IsPaymentStage() {
			return nil
		}

		settled, err := s.charges.FullySettled(ctx, encounterID)
		if err != nil {
			return fmt.Errorf("check settlement: %w", err)
		}
		if !settled {
			return nil
		}

		next, err := ResolveNext(ctx, s.orders, encounterID, j.current)
		if err != nil {
			return fmt.Errorf("resolve routing: %w", err)
		}

		if _, err := s.applyTransition(ctx, j, nil, next, RoutingAwaiting, "payment-settled"); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil {
		return err
	}

	if advanced {
		s.refresh(ctx, encounterID)
	}
	return nil
}
