package encounter

import (
	"context"

	"github.com/google/uuid"
)

// OrderKind classifies pending clinical orders for routing decisions.
type OrderKind string

const (
	OrderLab        OrderKind = "lab"
	OrderImaging    OrderKind = "imaging"
	OrderMedication OrderKind = "medication"
)

// OrderChecker reports whether an encounter has unfulfilled orders of a given
// kind. The orders package implements this.
type OrderChecker interface {
	HasPendingOrders(ctx context.Context, encounterID uuid.UUID, kind OrderKind) (bool, error)
}

// ResolveNext decides where a patient goes after clearing a payment stage.
// After a diagnosis payment, pending work is served in a fixed priority:
// lab before imaging before pharmacy; with nothing pending the patient
// returns to the doctor.
func ResolveNext(ctx context.Context, checker OrderChecker, encounterID uuid.UUID, from Stage) (Stage, error) {
	switch from {
	case StagePayingConsultation:
		return StageAtTriage, nil
	case StagePayingPharmacy:
		return StageAtPharmacy, nil
	case StagePayingDiagnosis:
		for _, step := range []struct {
			kind OrderKind
			next Stage
		}{
			{OrderLab, StageAtLab},
			{OrderImaging, StageAtImaging},
			{OrderMedication, StageAtPharmacy},
		} {
			pending, err := checker.HasPendingOrders(ctx, encounterID, step.kind)
			if err != nil {
				return "", err
			}
			if pending {
				return step.next, nil
			}
		}
		return StageWithDoctor, nil
	default:
		return "", &InvalidTransitionError{From: from}
	}
}

// SuggestNext is the advisory variant used by the awaiting-routing feed. For
// non-payment stages it suggests the first allowed next stage, if any.
func SuggestNext(ctx context.Context, checker OrderChecker, enc *Encounter) (Stage, error) {
	if enc.CurrentStage.IsPaymentStage() {
		return ResolveNext(ctx, checker, enc.ID, enc.CurrentStage)
	}
	next := AllowedNext(enc.CurrentStage)
	if len(next) == 0 {
		return "", nil
	}
	return next[0], nil
}
