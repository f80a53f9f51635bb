package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/zelalemgb/linkclinic/internal/domain/billing"
	"github.com/zelalemgb/linkclinic/internal/domain/encounter"
)

// Dashboard names one of the role-facing queue views.
type Dashboard string

const (
	DashboardNurse   Dashboard = "nurse"
	DashboardDoctor  Dashboard = "doctor"
	DashboardCashier Dashboard = "cashier"
)

var validDashboards = map[Dashboard]bool{
	DashboardNurse: true, DashboardDoctor: true, DashboardCashier: true,
}

func (d Dashboard) Valid() bool { return validDashboards[d] }

// dashboardStages assigns each active stage to the dashboards that show it.
var dashboardStages = map[encounter.Stage][]Dashboard{
	encounter.StagePayingConsultation: {DashboardCashier},
	encounter.StagePayingDiagnosis:    {DashboardCashier},
	encounter.StagePayingPharmacy:     {DashboardCashier},
	encounter.StageAtTriage:           {DashboardNurse},
	encounter.StageVitalsTaken:        {DashboardNurse, DashboardDoctor},
	encounter.StageWithDoctor:         {DashboardDoctor},
	encounter.StageAdmitted:           {DashboardDoctor},
}

// ProjectionRow is one cached wide row per active encounter per dashboard.
// Derived, never authoritative: rebuilt wholesale on every qualifying write.
type ProjectionRow struct {
	EncounterID    uuid.UUID               `db:"encounter_id" json:"encounter_id"`
	Dashboard      Dashboard               `db:"dashboard" json:"dashboard"`
	FacilityID     uuid.UUID               `db:"facility_id" json:"facility_id"`
	PatientID      uuid.UUID               `db:"patient_id" json:"patient_id"`
	PatientSummary string                  `db:"patient_summary" json:"patient_summary"`
	VitalsSummary  string                  `db:"vitals_summary" json:"vitals_summary"`
	Stage          encounter.Stage         `db:"stage" json:"stage"`
	StageEnteredAt time.Time               `db:"stage_entered_at" json:"stage_entered_at"`
	WaitMinutes    int                     `db:"wait_minutes" json:"wait_minutes"`
	RoutingStatus  encounter.RoutingStatus `db:"routing_status" json:"routing_status"`
	PaymentSummary PaymentSummary          `json:"payment"`
	RefreshedAt    time.Time               `db:"refreshed_at" json:"refreshed_at"`
}

// PaymentSummary is the three-axis payment classification shown on every
// dashboard row.
type PaymentSummary struct {
	ConsultationPaymentStatus billing.PaymentStatus `db:"consultation_payment_status" json:"consultation_payment_status"`
	OverallPaymentStatus      billing.PaymentStatus `db:"overall_payment_status" json:"overall_payment_status"`
	HasUnpaidItems            bool                  `db:"has_unpaid_items" json:"has_unpaid_items"`
}

// AwaitingRoutingRow feeds the cashier's "needs physical routing" list:
// encounters the system already pre-advanced that no staff member has
// acknowledged yet.
type AwaitingRoutingRow struct {
	EncounterID        uuid.UUID                     `json:"encounter_id"`
	PatientID          uuid.UUID                     `json:"patient_id"`
	PatientSummary     string                        `json:"patient_summary"`
	Stage              encounter.Stage               `json:"stage"`
	WaitMinutes        int                           `json:"wait_minutes"`
	PendingItems       []*billing.ChargeableLineItem `json:"pending_items"`
	SuggestedNextStage encounter.Stage               `json:"suggested_next_stage,omitempty"`
}

// classifyPayments folds an encounter's line items into the three axes. The
// overall axis is the worst status present: any unpaid item dominates, then
// partial; an encounter with no items counts as paid.
func classifyPayments(items []*billing.ChargeableLineItem) PaymentSummary {
	s := PaymentSummary{
		ConsultationPaymentStatus: billing.StatusPaid,
		OverallPaymentStatus:      billing.StatusPaid,
	}
	worst := func(current, status billing.PaymentStatus) billing.PaymentStatus {
		switch {
		case current == billing.StatusUnpaid || status == billing.StatusUnpaid:
			return billing.StatusUnpaid
		case current == billing.StatusPartial || status == billing.StatusPartial:
			return billing.StatusPartial
		default:
			return billing.StatusPaid
		}
	}
	for _, it := range items {
		if it.PaymentStatus == billing.StatusWaived {
			continue
		}
		s.OverallPaymentStatus = worst(s.OverallPaymentStatus, it.PaymentStatus)
		if it.Kind == billing.KindConsultation {
			s.ConsultationPaymentStatus = worst(s.ConsultationPaymentStatus, it.PaymentStatus)
		}
		if !it.PaymentStatus.Settled() {
			s.HasUnpaidItems = true
		}
	}
	return s
}
