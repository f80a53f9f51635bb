package encounter

import (
	"time"

	"github.com/google/uuid"
)

// RoutingStatus records whether staff have acted on the encounter's current
// stage. It is orthogonal to the stage itself: auto-advance moves the stage
// immediately and leaves the encounter awaiting physical routing.
type RoutingStatus string

const (
	RoutingRouted   RoutingStatus = "routed"
	RoutingAwaiting RoutingStatus = "awaiting_routing"
)

// Encounter maps to the encounter table. current_stage and routing_status are
// derived caches of the transition ledger with exactly two writers: staff
// advancement and payment-gated auto-advance. Everything else reads.
type Encounter struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	PatientID       uuid.UUID     `db:"patient_id" json:"patient_id"`
	FacilityID      uuid.UUID     `db:"facility_id" json:"facility_id"`
	CurrentStage    Stage         `db:"current_stage" json:"current_stage"`
	StageEnteredAt  time.Time     `db:"current_stage_entered_at" json:"current_stage_entered_at"`
	RoutingStatus   RoutingStatus `db:"routing_status" json:"routing_status"`
	ConsultationFee float64       `db:"consultation_fee" json:"consultation_fee"`
	TotalCharged    float64       `db:"total_charged" json:"total_charged"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// TimelineEntry maps to the encounter_timeline table. An encounter has at
// most one open entry (completed_at IS NULL), whose stage equals
// current_stage; terminal encounters have all entries closed.
type TimelineEntry struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EncounterID uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	Stage       Stage      `db:"stage" json:"stage"`
	ArrivedAt   time.Time  `db:"arrived_at" json:"arrived_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *string    `db:"completed_by" json:"completed_by,omitempty"`
	WaitMinutes *int       `db:"wait_minutes" json:"wait_minutes,omitempty"`
}

// Open reports whether the entry is still the encounter's active stage.
func (t *TimelineEntry) Open() bool { return t.CompletedAt == nil }

// StageTransitionEvent maps to the stage_transition_event table: the
// append-only ledger and source of truth for stage history. PreviousStage is
// nil only for the registration event; Actor is nil when system-driven.
type StageTransitionEvent struct {
	ID            uuid.UUID `db:"id" json:"id"`
	EncounterID   uuid.UUID `db:"encounter_id" json:"encounter_id"`
	PreviousStage *Stage    `db:"previous_stage" json:"previous_stage,omitempty"`
	NewStage      Stage     `db:"new_stage" json:"new_stage"`
	Actor         *string   `db:"actor" json:"actor,omitempty"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	Context       string    `db:"context" json:"context"`
}

// Actor is the resolved acting identity for a staff-driven transition.
type Actor struct {
	ID    string
	Roles []string
}

// PrimaryRole is the role named in authorization errors.
func (a Actor) PrimaryRole() string {
	if len(a.Roles) == 0 {
		return "unknown"
	}
	return a.Roles[0]
}

// TransitionResult is the structured outcome of a successful advance.
type TransitionResult struct {
	Success       bool          `json:"success"`
	EncounterID   uuid.UUID     `json:"encounter_id"`
	PreviousStage Stage         `json:"previous_stage"`
	NewStage      Stage         `json:"new_stage"`
	RoutingStatus RoutingStatus `json:"routing_status"`
}

// journey is an encounter's lifecycle position as read inside a transition:
// the authoritative current stage plus how it was determined. Legacy marks
// pre-ledger encounters whose stage came from the denormalized field because
// no timeline rows exist; new code must not depend on that fallback.
type journey struct {
	enc     *Encounter
	open    *TimelineEntry
	current Stage
	legacy  bool
}
