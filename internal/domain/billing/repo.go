package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("line item not found")

type Repository interface {
	Create(ctx context.Context, item *ChargeableLineItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChargeableLineItem, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*ChargeableLineItem, error)
	SetStatus(ctx context.Context, id uuid.UUID, status PaymentStatus, settledAt *time.Time, settledBy *string) error
	// AddToEncounterTotal keeps the encounter's denormalized charge total in
	// step with its line items.
	AddToEncounterTotal(ctx context.Context, encounterID uuid.UUID, amount float64) error
}
