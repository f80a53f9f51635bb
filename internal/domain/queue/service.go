package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/domain/billing"
	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

// EncounterReader is the read-only slice of the encounter store the
// projections need. The encounter repository satisfies it.
type EncounterReader interface {
	GetByID(ctx context.Context, id, facilityID uuid.UUID) (*encounter.Encounter, error)
	ListActiveByFacility(ctx context.Context, facilityID uuid.UUID) ([]*encounter.Encounter, error)
}

// ChargeLister exposes an encounter's line items for classification.
type ChargeLister interface {
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*billing.ChargeableLineItem, error)
}

// Service maintains the derived dashboard rows. Everything here is a read
// model: a lost row is an operational problem, never a data-integrity one.
type Service struct {
	repo       Repository
	encounters EncounterReader
	charges    ChargeLister
	orders     encounter.OrderChecker
	log        zerolog.Logger
}

func NewService(repo Repository, encounters EncounterReader, charges ChargeLister, orders encounter.OrderChecker, log zerolog.Logger) *Service {
	return &Service{repo: repo, encounters: encounters, charges: charges, orders: orders, log: log}
}

// RefreshEncounter recomputes and replaces every dashboard row for one
// encounter. Terminal encounters drop off all dashboards.
func (s *Service) RefreshEncounter(ctx context.Context, encounterID uuid.UUID) error {
	enc, err := s.encounters.GetByID(ctx, encounterID, uuid.Nil)
	if err != nil {
		return fmt.Errorf("load encounter: %w", err)
	}
	if enc.CurrentStage.IsTerminal() {
		return s.repo.DeleteForEncounter(ctx, encounterID)
	}

	items, err := s.charges.ListByEncounter(ctx, encounterID)
	if err != nil {
		return fmt.Errorf("list charges: %w", err)
	}
	patient, vitals, err := s.repo.LoadSummaries(ctx, encounterID)
	if err != nil {
		return fmt.Errorf("load summaries: %w", err)
	}

	now := time.Now().UTC()
	payment := classifyPayments(items)
	wait := int(now.Sub(enc.StageEnteredAt).Minutes())
	if wait < 0 {
		wait = 0
	}

	var rows []*ProjectionRow
	for _, dashboard := range dashboardStages[enc.CurrentStage] {
		rows = append(rows, &ProjectionRow{
			EncounterID:    enc.ID,
			Dashboard:      dashboard,
			FacilityID:     enc.FacilityID,
			PatientID:      enc.PatientID,
			PatientSummary: patient,
			VitalsSummary:  vitals,
			Stage:          enc.CurrentStage,
			StageEnteredAt: enc.StageEnteredAt,
			WaitMinutes:    wait,
			RoutingStatus:  enc.RoutingStatus,
			PaymentSummary: payment,
			RefreshedAt:    now,
		})
	}
	return s.repo.ReplaceForEncounter(ctx, encounterID, rows)
}

// GetQueue returns one dashboard's rows, oldest stage arrival first.
func (s *Service) GetQueue(ctx context.Context, dashboard Dashboard, facilityID uuid.UUID) ([]*ProjectionRow, error) {
	if !dashboard.Valid() {
		return nil, fmt.Errorf("unknown dashboard: %s", dashboard)
	}
	return s.repo.ListByDashboard(ctx, dashboard, facilityID)
}

// AwaitingRouting lists encounters the system pre-advanced that still wait
// for a staff member to physically route the patient, each with its unsettled
// items and the resolver's suggested destination.
func (s *Service) AwaitingRouting(ctx context.Context, facilityID uuid.UUID) ([]*AwaitingRoutingRow, error) {
	encs, err := s.encounters.ListActiveByFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var out []*AwaitingRoutingRow
	for _, enc := range encs {
		if enc.RoutingStatus != encounter.RoutingAwaiting {
			continue
		}
		items, err := s.charges.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, fmt.Errorf("list charges: %w", err)
		}
		var pending []*billing.ChargeableLineItem
		for _, it := range items {
			if !it.PaymentStatus.Settled() {
				pending = append(pending, it)
			}
		}
		patient, _, err := s.repo.LoadSummaries(ctx, enc.ID)
		if err != nil {
			return nil, fmt.Errorf("load summaries: %w", err)
		}
		suggested, err := encounter.SuggestNext(ctx, s.orders, enc)
		if err != nil {
			s.log.Warn().Err(err).
				Str("encounter_id", enc.ID.String()).
				Msg("routing suggestion failed")
			suggested = ""
		}
		wait := int(now.Sub(enc.StageEnteredAt).Minutes())
		if wait < 0 {
			wait = 0
		}
		out = append(out, &AwaitingRoutingRow{
			EncounterID:        enc.ID,
			PatientID:          enc.PatientID,
			PatientSummary:     patient,
			Stage:              enc.CurrentStage,
			WaitMinutes:        wait,
			PendingItems:       pending,
			SuggestedNextStage: suggested,
		})
	}
	return out, nil
}
