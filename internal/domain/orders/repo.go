package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

var ErrNotFound = errors.New("order not found")

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Order, error)
	ExistsPending(ctx context.Context, encounterID uuid.UUID, kind encounter.OrderKind) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
}
