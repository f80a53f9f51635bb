package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

type mockRepo struct {
	orders map[uuid.UUID]*Order
}

func newMockRepo() *mockRepo {
	return &mockRepo{orders: make(map[uuid.UUID]*Order)}
}

func (m *mockRepo) Create(_ context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	m.orders[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*Order, error) {
	var out []*Order
	for _, o := range m.orders {
		if o.EncounterID == encounterID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockRepo) ExistsPending(_ context.Context, encounterID uuid.UUID, kind encounter.OrderKind) (bool, error) {
	for _, o := range m.orders {
		if o.EncounterID == encounterID && o.Kind == kind && o.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) SetStatus(_ context.Context, id uuid.UUID, status OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func TestPlaceDefaultsToPending(t *testing.T) {
	svc := NewService(newMockRepo())
	o := &Order{EncounterID: uuid.New(), Kind: encounter.OrderLab, Code: "CBC", OrderedBy: "d1"}
	if err := svc.Place(context.Background(), o); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %q, want pending", o.Status)
	}
}

func TestPlaceValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Place(context.Background(), &Order{Kind: encounter.OrderLab}); err == nil {
		t.Error("expected error for missing encounter id")
	}
	if err := svc.Place(context.Background(), &Order{EncounterID: uuid.New(), Kind: "surgery"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestHasPendingOrdersTracksLifecycle(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	encID := uuid.New()

	o := &Order{EncounterID: encID, Kind: encounter.OrderImaging, Code: "CXR", OrderedBy: "d1"}
	if err := svc.Place(ctx, o); err != nil {
		t.Fatal(err)
	}

	if pending, _ := svc.HasPendingOrders(ctx, encID, encounter.OrderImaging); !pending {
		t.Error("placed order not pending")
	}
	if pending, _ := svc.HasPendingOrders(ctx, encID, encounter.OrderLab); pending {
		t.Error("wrong kind reported pending")
	}
	if pending, _ := svc.HasPendingOrders(ctx, uuid.New(), encounter.OrderImaging); pending {
		t.Error("wrong encounter reported pending")
	}

	if err := svc.Complete(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	if pending, _ := svc.HasPendingOrders(ctx, encID, encounter.OrderImaging); pending {
		t.Error("completed order still pending")
	}
}

func TestCancelRemovesFromRouting(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	encID := uuid.New()

	o := &Order{EncounterID: encID, Kind: encounter.OrderMedication, Code: "AMOX", OrderedBy: "d1"}
	if err := svc.Place(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := svc.Cancel(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	if pending, _ := svc.HasPendingOrders(ctx, encID, encounter.OrderMedication); pending {
		t.Error("cancelled order still pending")
	}
}
