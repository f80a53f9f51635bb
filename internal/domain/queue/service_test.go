package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/domain/billing"
	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

type mockProjectionRepo struct {
	rows       map[uuid.UUID][]*ProjectionRow
	replaceErr error
}

func newMockProjectionRepo() *mockProjectionRepo {
	return &mockProjectionRepo{rows: make(map[uuid.UUID][]*ProjectionRow)}
}

func (m *mockProjectionRepo) ReplaceForEncounter(_ context.Context, encounterID uuid.UUID, rows []*ProjectionRow) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.rows[encounterID] = rows
	return nil
}

func (m *mockProjectionRepo) DeleteForEncounter(_ context.Context, encounterID uuid.UUID) error {
	delete(m.rows, encounterID)
	return nil
}

func (m *mockProjectionRepo) ListByDashboard(_ context.Context, dashboard Dashboard, facilityID uuid.UUID) ([]*ProjectionRow, error) {
	var out []*ProjectionRow
	for _, rows := range m.rows {
		for _, r := range rows {
			if r.Dashboard != dashboard {
				continue
			}
			if facilityID != uuid.Nil && r.FacilityID != facilityID {
				continue
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockProjectionRepo) LoadSummaries(_ context.Context, _ uuid.UUID) (string, string, error) {
	return "Abebe K. (MRN-7)", "BP 120/80 T 36.8", nil
}

type mockEncounters struct {
	encs map[uuid.UUID]*encounter.Encounter
}

func (m *mockEncounters) GetByID(_ context.Context, id, _ uuid.UUID) (*encounter.Encounter, error) {
	e, ok := m.encs[id]
	if !ok {
		return nil, encounter.ErrNotFound
	}
	return e, nil
}

func (m *mockEncounters) ListActiveByFacility(_ context.Context, facilityID uuid.UUID) ([]*encounter.Encounter, error) {
	var out []*encounter.Encounter
	for _, e := range m.encs {
		if e.CurrentStage.IsTerminal() {
			continue
		}
		if facilityID != uuid.Nil && e.FacilityID != facilityID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type mockCharges struct {
	items map[uuid.UUID][]*billing.ChargeableLineItem
}

func (m *mockCharges) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*billing.ChargeableLineItem, error) {
	return m.items[encounterID], nil
}

type mockOrders struct {
	pending map[encounter.OrderKind]bool
}

func (m *mockOrders) HasPendingOrders(_ context.Context, _ uuid.UUID, kind encounter.OrderKind) (bool, error) {
	return m.pending[kind], nil
}

type queueFixture struct {
	repo       *mockProjectionRepo
	encounters *mockEncounters
	charges    *mockCharges
	orders     *mockOrders
	svc        *Service
}

func newQueueFixture() *queueFixture {
	f := &queueFixture{
		repo:       newMockProjectionRepo(),
		encounters: &mockEncounters{encs: make(map[uuid.UUID]*encounter.Encounter)},
		charges:    &mockCharges{items: make(map[uuid.UUID][]*billing.ChargeableLineItem)},
		orders:     &mockOrders{pending: make(map[encounter.OrderKind]bool)},
	}
	f.svc = NewService(f.repo, f.encounters, f.charges, f.orders, zerolog.Nop())
	return f
}

func (f *queueFixture) addEncounter(stage encounter.Stage, routing encounter.RoutingStatus) *encounter.Encounter {
	e := &encounter.Encounter{
		ID: uuid.New(), PatientID: uuid.New(), FacilityID: uuid.New(),
		CurrentStage: stage, RoutingStatus: routing,
		StageEnteredAt: time.Now().UTC().Add(-30 * time.Minute),
	}
	f.encounters.encs[e.ID] = e
	return e
}

func TestRefreshEncounterBuildsDashboardRows(t *testing.T) {
	f := newQueueFixture()
	e := f.addEncounter(encounter.StageVitalsTaken, encounter.RoutingRouted)
	ctx := context.Background()

	if err := f.svc.RefreshEncounter(ctx, e.ID); err != nil {
		t.Fatalf("RefreshEncounter: %v", err)
	}
	rows := f.repo.rows[e.ID]
	if len(rows) != 2 {
		t.Fatalf("vitals_taken should appear on nurse and doctor dashboards, got %d rows", len(rows))
	}
	seen := map[Dashboard]bool{}
	for _, r := range rows {
		seen[r.Dashboard] = true
		if r.Stage != encounter.StageVitalsTaken {
			t.Errorf("row stage = %q", r.Stage)
		}
		if r.WaitMinutes < 29 || r.WaitMinutes > 31 {
			t.Errorf("wait minutes = %d, want ~30", r.WaitMinutes)
		}
		if r.PatientSummary == "" || r.VitalsSummary == "" {
			t.Error("summaries not denormalized onto row")
		}
	}
	if !seen[DashboardNurse] || !seen[DashboardDoctor] {
		t.Errorf("dashboards = %v", seen)
	}
}

func TestRefreshEncounterRecomputeAndReplace(t *testing.T) {
	f := newQueueFixture()
	e := f.addEncounter(encounter.StageAtTriage, encounter.RoutingRouted)
	ctx := context.Background()

	if err := f.svc.RefreshEncounter(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	e.CurrentStage = encounter.StageWithDoctor
	if err := f.svc.RefreshEncounter(ctx, e.ID); err != nil {
		t.Fatal(err)
	}

	nurse, _ := f.repo.ListByDashboard(ctx, DashboardNurse, uuid.Nil)
	if len(nurse) != 0 {
		t.Errorf("stale nurse rows survived the move: %d", len(nurse))
	}
	doctor, _ := f.repo.ListByDashboard(ctx, DashboardDoctor, uuid.Nil)
	if len(doctor) != 1 {
		t.Errorf("doctor rows = %d, want 1", len(doctor))
	}
}

func TestRefreshTerminalEncounterDeletesRows(t *testing.T) {
	f := newQueueFixture()
	e := f.addEncounter(encounter.StageWithDoctor, encounter.RoutingRouted)
	ctx := context.Background()

	if err := f.svc.RefreshEncounter(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	e.CurrentStage = encounter.StageDischarged
	if err := f.svc.RefreshEncounter(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if rows := f.repo.rows[e.ID]; len(rows) != 0 {
		t.Errorf("terminal encounter kept %d projection rows", len(rows))
	}
}

func TestPaymentClassification(t *testing.T) {
	consultation := func(status billing.PaymentStatus) *billing.ChargeableLineItem {
		return &billing.ChargeableLineItem{Kind: billing.KindConsultation, PaymentStatus: status}
	}
	lab := func(status billing.PaymentStatus) *billing.ChargeableLineItem {
		return &billing.ChargeableLineItem{Kind: billing.KindLab, PaymentStatus: status}
	}

	tests := []struct {
		name  string
		items []*billing.ChargeableLineItem
		want  PaymentSummary
	}{
		{
			"no items",
			nil,
			PaymentSummary{billing.StatusPaid, billing.StatusPaid, false},
		},
		{
			"consultation unpaid",
			[]*billing.ChargeableLineItem{consultation(billing.StatusUnpaid)},
			PaymentSummary{billing.StatusUnpaid, billing.StatusUnpaid, true},
		},
		{
			"consultation paid lab unpaid",
			[]*billing.ChargeableLineItem{consultation(billing.StatusPaid), lab(billing.StatusUnpaid)},
			PaymentSummary{billing.StatusPaid, billing.StatusUnpaid, true},
		},
		{
			"partial dominates paid",
			[]*billing.ChargeableLineItem{consultation(billing.StatusPartial), lab(billing.StatusPaid)},
			PaymentSummary{billing.StatusPartial, billing.StatusPartial, true},
		},
		{
			"waived items ignored",
			[]*billing.ChargeableLineItem{consultation(billing.StatusPaid), lab(billing.StatusWaived)},
			PaymentSummary{billing.StatusPaid, billing.StatusPaid, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPayments(tt.items); got != tt.want {
				t.Errorf("classifyPayments = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAwaitingRoutingFeed(t *testing.T) {
	f := newQueueFixture()
	ctx := context.Background()

	awaiting := f.addEncounter(encounter.StagePayingDiagnosis, encounter.RoutingAwaiting)
	f.addEncounter(encounter.StageAtTriage, encounter.RoutingRouted)
	f.charges.items[awaiting.ID] = []*billing.ChargeableLineItem{
		{EncounterID: awaiting.ID, Kind: billing.KindLab, PaymentStatus: billing.StatusUnpaid, Amount: 90},
		{EncounterID: awaiting.ID, Kind: billing.KindConsultation, PaymentStatus: billing.StatusPaid, Amount: 200},
	}
	f.orders.pending[encounter.OrderLab] = true

	rows, err := f.svc.AwaitingRouting(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("AwaitingRouting: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 (routed encounters excluded)", len(rows))
	}
	row := rows[0]
	if row.EncounterID != awaiting.ID {
		t.Errorf("encounter = %s", row.EncounterID)
	}
	if len(row.PendingItems) != 1 || row.PendingItems[0].Kind != billing.KindLab {
		t.Errorf("pending items = %+v", row.PendingItems)
	}
	if row.SuggestedNextStage != encounter.StageAtLab {
		t.Errorf("suggested next = %q, want at_lab", row.SuggestedNextStage)
	}
}

func TestRefreshFailurePropagatesToCallerForLogging(t *testing.T) {
	f := newQueueFixture()
	e := f.addEncounter(encounter.StageAtTriage, encounter.RoutingRouted)
	f.repo.replaceErr = errors.New("projection table locked")

	if err := f.svc.RefreshEncounter(context.Background(), e.ID); err == nil {
		t.Error("expected error so mutation sites can log it")
	}
}

func TestGetQueueRejectsUnknownDashboard(t *testing.T) {
	f := newQueueFixture()
	if _, err := f.svc.GetQueue(context.Background(), "janitor", uuid.Nil); err == nil {
		t.Error("unknown dashboard accepted")
	}
}
