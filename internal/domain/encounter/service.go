package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/platform/auth"
	"github.com/zelalemgb/linkclinic/internal/platform/db"
)

// ChargeReader reports the settlement state of an encounter's charges. The
// billing package implements this.
type ChargeReader interface {
	FullySettled(ctx context.Context, encounterID uuid.UUID) (bool, error)
}

// ProjectionRefresher rebuilds the dashboard queue rows for one encounter.
// Refresh failures are logged and never fail the transition that triggered
// them.
type ProjectionRefresher interface {
	RefreshEncounter(ctx context.Context, encounterID uuid.UUID) error
}

// Service owns every write to an encounter's stage. Staff advancement and
// payment-gated auto-advance are the only two paths that mutate
// current_stage and routing_status; everything else reads.
type Service struct {
	repo      Repository
	orders    OrderChecker
	charges   ChargeReader
	refresher ProjectionRefresher
	log       zerolog.Logger
}

func NewService(repo Repository, orders OrderChecker, charges ChargeReader, log zerolog.Logger) *Service {
	return &Service{repo: repo, orders: orders, charges: charges, log: log}
}

// SetProjectionRefresher attaches the queue projection rebuilder. Optional;
// wired at startup after the queue service exists.
func (s *Service) SetProjectionRefresher(r ProjectionRefresher) {
	s.refresher = r
}

// Register creates a new encounter at the registered stage with its opening
// timeline entry and the first ledger event.
func (s *Service) Register(ctx context.Context, actor *Actor, patientID, facilityID uuid.UUID, consultationFee float64) (*Encounter, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if facilityID == uuid.Nil {
		return nil, fmt.Errorf("facility_id is required")
	}

	now := time.Now().UTC()
	enc := &Encounter{
		ID:              uuid.New(),
		PatientID:       patientID,
		FacilityID:      facilityID,
		CurrentStage:    StageRegistered,
		StageEnteredAt:  now,
		RoutingStatus:   RoutingRouted,
		ConsultationFee: consultationFee,
	}

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, enc); err != nil {
			return fmt.Errorf("create encounter: %w", err)
		}
		entry := &TimelineEntry{EncounterID: enc.ID, Stage: StageRegistered, ArrivedAt: now}
		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("append timeline entry: %w", err)
		}
		ev := &StageTransitionEvent{
			EncounterID: enc.ID,
			NewStage:    StageRegistered,
			Actor:       actorID(actor),
			OccurredAt:  now,
			Context:     "registration",
		}
		if err := s.repo.AppendEvent(ctx, ev); err != nil {
			return fmt.Errorf("append transition event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, enc.ID)
	return enc, nil
}

// AdvanceStage moves an encounter to the requested stage on behalf of a staff
// member. Checks run in a fixed order: identity, requested-stage validity,
// current-stage resolution, terminal, acknowledgement, capability,
// reachability. Super-operators skip the capability and reachability checks
// only. The whole apply is one transaction under a row lock.
func (s *Service) AdvanceStage(ctx context.Context, actor *Actor, encounterID uuid.UUID, requested Stage, facilityID uuid.UUID) (*TransitionResult, error) {
	if actor == nil || actor.ID == "" {
		return nil, ErrUnauthenticated
	}
	if !requested.Valid() {
		return nil, &InvalidTransitionError{To: requested}
	}

	bypass := auth.IsSuperOperator(actor.Roles)

	var result *TransitionResult
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		j, err := s.loadJourney(ctx, encounterID, facilityID)
		if err != nil {
			return err
		}

		// Terminal stages are final for everyone, super-operators included.
		// Re-requesting one is not an acknowledgement: a terminal encounter
		// is off every queue and has no routing left to reset.
		if j.current.IsTerminal() {
			return &InvalidTransitionError{From: j.current}
		}

		// The encounter was already moved here (usually by auto-advance);
		// treat the request as an acknowledgement and mark it routed.
		if requested == j.current {
			if err := s.repo.SetRoutingStatus(ctx, encounterID, RoutingRouted); err != nil {
				return err
			}
			result = &TransitionResult{
				Success:       true,
				EncounterID:   encounterID,
				PreviousStage: j.current,
				NewStage:      j.current,
				RoutingStatus: RoutingRouted,
			}
			return nil
		}
		if !bypass {
			if cap, ok := RequiredCapability(j.current); ok && !auth.HasCapability(actor.Roles, cap) {
				return &ForbiddenError{Role: actor.PrimaryRole(), Stage: j.current}
			}
			if !CanTransition(j.current, requested) {
				return &InvalidTransitionError{From: j.current, To: requested}
			}
		}

		result, err = s.applyTransition(ctx, j, actorID(actor), requested, RoutingRouted, "staff-advance")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, encounterID)
	return result, nil
}

// actorID returns the nullable ledger actor for a staff identity.
func actorID(a *Actor) *string {
	if a == nil || a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}

// loadJourney locks the encounter row and resolves its authoritative current
// stage from the open timeline entry. Encounters created before the timeline
// existed have no entries at all; for those only, the denormalized stage
// column is trusted.
func (s *Service) loadJourney(ctx context.Context, encounterID, facilityID uuid.UUID) (*journey, error) {
	enc, err := s.repo.GetForUpdate(ctx, encounterID, facilityID)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.OpenEntry(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("load open timeline entry: %w", err)
	}
	if open != nil {
		return &journey{enc: enc, open: open, current: open.Stage}, nil
	}
	has, err := s.repo.HasEntries(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("check timeline entries: %w", err)
	}
	if has {
		// All entries closed: the encounter reached a terminal stage.
		return &journey{enc: enc, current: enc.CurrentStage}, nil
	}
	return &journey{enc: enc, current: enc.CurrentStage, legacy: true}, nil
}

// applyTransition performs the atomic write set of a transition: close the
// open entry, open the next one, append the ledger event, and update the
// derived stage cache guarded by the expected stage. Must run inside a
// transaction.
func (s *Service) applyTransition(ctx context.Context, j *journey, actor *string, to Stage, routing RoutingStatus, evContext string) (*TransitionResult, error) {
	now := time.Now().UTC()

	if j.open != nil {
		wait := int(now.Sub(j.open.ArrivedAt).Minutes())
		if wait < 0 {
			wait = 0
		}
		if err := s.repo.CloseEntry(ctx, j.open.ID, now, actor, wait); err != nil {
			return nil, fmt.Errorf("close timeline entry: %w", err)
		}
	}

	entry := &TimelineEntry{EncounterID: j.enc.ID, Stage: to, ArrivedAt: now}
	if to.IsTerminal() {
		// Terminal stages have no dwell time; the entry is born closed so no
		// open entry outlives the encounter.
		zero := 0
		entry.CompletedAt = &now
		entry.CompletedBy = actor
		entry.WaitMinutes = &zero
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append timeline entry: %w", err)
	}

	prev := j.current
	ev := &StageTransitionEvent{
		EncounterID:   j.enc.ID,
		PreviousStage: &prev,
		NewStage:      to,
		Actor:         actor,
		OccurredAt:    now,
		Context:       evContext,
	}
	if err := s.repo.AppendEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("append transition event: %w", err)
	}

	ok, err := s.repo.UpdateStage(ctx, j.enc.ID, j.enc.CurrentStage, to, now, routing)
	if err != nil {
		return nil, fmt.Errorf("update encounter stage: %w", err)
	}
	if !ok {
		return nil, ErrConcurrentModification
	}

	return &TransitionResult{
		Success:       true,
		EncounterID:   j.enc.ID,
		PreviousStage: prev,
		NewStage:      to,
		RoutingStatus: routing,
	}, nil
}

// refresh rebuilds the encounter's queue rows. Failures are logged only; a
// stale dashboard never fails a committed transition.
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

// Get returns one encounter scoped to the caller's facility.
func (s *Service) Get(ctx context.Context, id, facilityID uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id, facilityID)
}

// Timeline returns the journey entries oldest-first.
func (s *Service) Timeline(ctx context.Context, id, facilityID uuid.UUID) ([]*TimelineEntry, error) {
	if _, err := s.repo.GetByID(ctx, id, facilityID); err != nil {
		return nil, err
	}
	return s.repo.Timeline(ctx, id)
}

// Events returns the transition ledger oldest-first.
func (s *Service) Events(ctx context.Context, id, facilityID uuid.UUID) ([]*StageTransitionEvent, error) {
	if _, err := s.repo.GetByID(ctx, id, facilityID); err != nil {
		return nil, err
	}
	return s.repo.Events(ctx, id)
}

// ListActive returns non-terminal encounters for a facility, oldest stage
// arrival first.
func (s *Service) ListActive(ctx context.Context, facilityID uuid.UUID) ([]*Encounter, error) {
	return s.repo.ListActiveByFacility(ctx, facilityID)
}
