package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

// OrderStatus tracks an order from placement to fulfilment.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Order maps to the clinical_order table. Kind reuses the routing
// classification so pending orders can steer post-payment routing directly.
type Order struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	EncounterID uuid.UUID           `db:"encounter_id" json:"encounter_id"`
	Kind        encounter.OrderKind `db:"kind" json:"kind"`
	Code        string              `db:"code" json:"code"`
	Description string              `db:"description" json:"description"`
	Status      OrderStatus         `db:"status" json:"status"`
	OrderedBy   string              `db:"ordered_by" json:"ordered_by"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

var validKinds = map[encounter.OrderKind]bool{
	encounter.OrderLab:        true,
	encounter.OrderImaging:    true,
	encounter.OrderMedication: true,
}
