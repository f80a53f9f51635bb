package billing

import (
	"time"

	"github.com/google/uuid"
)

// ChargeKind classifies what a line item bills for.
type ChargeKind string

const (
	KindConsultation ChargeKind = "consultation"
	KindLab          ChargeKind = "lab"
	KindImaging      ChargeKind = "imaging"
	KindMedication   ChargeKind = "medication"
	KindService      ChargeKind = "service"
)

var validKinds = map[ChargeKind]bool{
	KindConsultation: true, KindLab: true, KindImaging: true,
	KindMedication: true, KindService: true,
}

func (k ChargeKind) Valid() bool { return validKinds[k] }

// PaymentStatus is the settlement state of one line item. Waived items never
// block progress.
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
	StatusWaived  PaymentStatus = "waived"
)

// Settled reports whether the item no longer blocks the encounter.
func (s PaymentStatus) Settled() bool { return s == StatusPaid || s == StatusWaived }

// ChargeableLineItem maps to the chargeable_line_item table.
type ChargeableLineItem struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	EncounterID   uuid.UUID     `db:"encounter_id" json:"encounter_id"`
	FacilityID    uuid.UUID     `db:"facility_id" json:"facility_id"`
	Kind          ChargeKind    `db:"kind" json:"kind"`
	Description   string        `db:"description" json:"description"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	SettledAt     *time.Time    `db:"settled_at" json:"settled_at,omitempty"`
	SettledBy     *string       `db:"settled_by" json:"settled_by,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
