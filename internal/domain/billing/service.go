package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/platform/db"
)

// StageAdvancer moves an encounter forward once its charges are settled. The
// encounter service implements this; errors are logged here, never returned
// to the payer.
type StageAdvancer interface {
	AutoAdvance(ctx context.Context, encounterID uuid.UUID) error
}

// ProjectionRefresher rebuilds the dashboard rows for one encounter.
type ProjectionRefresher interface {
	RefreshEncounter(ctx context.Context, encounterID uuid.UUID) error
}

type Service struct {
	repo      Repository
	advancer  StageAdvancer
	refresher ProjectionRefresher
	log       zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// SetStageAdvancer wires the encounter service in at startup.
func (s *Service) SetStageAdvancer(a StageAdvancer) { s.advancer = a }

// SetProjectionRefresher wires the queue service in at startup.
func (s *Service) SetProjectionRefresher(r ProjectionRefresher) { s.refresher = r }

// AddCharge records a new unpaid line item and bumps the encounter's charge
// total in the same transaction.
func (s *Service) AddCharge(ctx context.Context, item *ChargeableLineItem) error {
	if item.EncounterID == uuid.Nil {
		return fmt.Errorf("encounter_id is required")
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("invalid charge kind: %s", item.Kind)
	}
	if item.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if item.PaymentStatus == "" {
		item.PaymentStatus = StatusUnpaid
	}

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, item); err != nil {
			return fmt.Errorf("create line item: %w", err)
		}
		if err := s.repo.AddToEncounterTotal(ctx, item.EncounterID, item.Amount); err != nil {
			return fmt.Errorf("update encounter total: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refresh(ctx, item.EncounterID)
	return nil
}

// ListCharges returns an encounter's line items oldest-first.
func (s *Service) ListCharges(ctx context.Context, encounterID uuid.UUID) ([]*ChargeableLineItem, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

// Settle marks one line item paid or waived. After the settlement commits,
// the encounter is given a chance to auto-advance out of its payment stage;
// that and the dashboard refresh are best-effort so a projection or routing
// failure never turns a recorded payment into an error for the payer.
func (s *Service) Settle(ctx context.Context, itemID uuid.UUID, status PaymentStatus, actorID string) (*ChargeableLineItem, error) {
	if status != StatusPaid && status != StatusWaived {
		return nil, fmt.Errorf("settlement status must be %s or %s", StatusPaid, StatusWaived)
	}

	var item *ChargeableLineItem
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repo.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item.PaymentStatus.Settled() {
			return fmt.Errorf("line item already %s", item.PaymentStatus)
		}
		now := time.Now().UTC()
		var by *string
		if actorID != "" {
			by = &actorID
		}
		if err := s.repo.SetStatus(ctx, itemID, status, &now, by); err != nil {
			return err
		}
		item.PaymentStatus = status
		item.SettledAt = &now
		item.SettledBy = by
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.advancer != nil {
		if err := s.advancer.AutoAdvance(ctx, item.EncounterID); err != nil {
			s.log.Error().Err(err).
				Str("encounter_id", item.EncounterID.String()).
				Msg("auto-advance after settlement failed")
		}
	}
	s.refresh(ctx, item.EncounterID)
	return item, nil
}

// FullySettled reports whether every non-waived line item is paid. The full
// list is rescanned on each call rather than trusting a counter.
func (s *Service) FullySettled(ctx context.Context, encounterID uuid.UUID) (bool, error) {
	items, err := s.repo.ListByEncounter(ctx, encounterID)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if !it.PaymentStatus.Settled() {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) refresh(ctx context.Context, encounterID uuid.UUID) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.RefreshEncounter(ctx, encounterID); err != nil {
		s.log.Error().Err(err).
			Str("encounter_id", encounterID.String()).
			Msg("queue projection refresh failed")
	}
}
