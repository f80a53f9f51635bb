package encounter

import (
	"github.com/zelalemgb/linkclinic/internal/platform/auth"
)

// Stage is a named point in the care pathway.
type Stage string

const (
	StageRegistered         Stage = "registered"
	StagePayingConsultation Stage = "paying_consultation"
	StageAtTriage           Stage = "at_triage"
	StageVitalsTaken        Stage = "vitals_taken"
	StageWithDoctor         Stage = "with_doctor"
	StagePayingDiagnosis    Stage = "paying_diagnosis"
	StageAtLab              Stage = "at_lab"
	StageAtImaging          Stage = "at_imaging"
	StagePayingPharmacy     Stage = "paying_pharmacy"
	StageAtPharmacy         Stage = "at_pharmacy"
	StageAdmitted           Stage = "admitted"
	StageDischarged         Stage = "discharged"
	StageCancelled          Stage = "cancelled"
)

// allowedNext is the static transition table. Terminal stages have empty
// next-sets; unknown stages are absent and therefore rejected everywhere.
var allowedNext = map[Stage][]Stage{
	StageRegistered:         {StagePayingConsultation, StageCancelled},
	StagePayingConsultation: {StageAtTriage, StageCancelled},
	StageAtTriage:           {StageVitalsTaken, StageCancelled},
	StageVitalsTaken:        {StageWithDoctor, StageCancelled},
	StageWithDoctor:         {StagePayingDiagnosis, StagePayingPharmacy, StageAdmitted, StageDischarged, StageCancelled},
	StagePayingDiagnosis:    {StageAtLab, StageAtImaging, StageAtPharmacy, StageWithDoctor, StageCancelled},
	StageAtLab:              {StageAtImaging, StageWithDoctor, StageCancelled},
	StageAtImaging:          {StageWithDoctor, StageCancelled},
	StagePayingPharmacy:     {StageAtPharmacy, StageCancelled},
	StageAtPharmacy:         {StageDischarged, StageWithDoctor, StageCancelled},
	StageAdmitted:           {StageDischarged, StageCancelled},
	StageDischarged:         {},
	StageCancelled:          {},
}

// leaveCapability names the capability a staff member needs to move an
// encounter out of each stage. Terminal stages are absent: nobody leaves them.
var leaveCapability = map[Stage]auth.Capability{
	StageRegistered:         auth.CapRegisterPatient,
	StagePayingConsultation: auth.CapCollectPayment,
	StageAtTriage:           auth.CapRecordVitals,
	StageVitalsTaken:        auth.CapTriagePatient,
	StageWithDoctor:         auth.CapConsultPatient,
	StagePayingDiagnosis:    auth.CapCollectPayment,
	StageAtLab:              auth.CapManageEncounters,
	StageAtImaging:          auth.CapManageEncounters,
	StagePayingPharmacy:     auth.CapCollectPayment,
	StageAtPharmacy:         auth.CapDispenseMeds,
	StageAdmitted:           auth.CapAdmitPatient,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := allowedNext[s]
	return ok
}

// IsTerminal reports whether s ends the encounter.
func (s Stage) IsTerminal() bool {
	return s == StageDischarged || s == StageCancelled
}

// IsPaymentStage reports whether s gates progress on settlement of charges.
func (s Stage) IsPaymentStage() bool {
	return s == StagePayingConsultation || s == StagePayingDiagnosis || s == StagePayingPharmacy
}

// AllowedNext returns the stages reachable from s. The result is a copy;
// callers may not mutate the catalog.
func AllowedNext(s Stage) []Stage {
	next, ok := allowedNext[s]
	if !ok {
		return nil
	}
	out := make([]Stage, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether moving from one stage to another is in the
// catalog. Unknown stages on either side are never allowed.
func CanTransition(from, to Stage) bool {
	for _, next := range allowedNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiredCapability returns the capability needed to move an encounter out
// of the given stage. ok is false for terminal and unknown stages.
func RequiredCapability(s Stage) (auth.Capability, bool) {
	c, ok := leaveCapability[s]
	return c, ok
}
