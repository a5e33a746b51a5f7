package dialog

import (
	"errors"
	"fmt"

	"gbv_reporter/session"
)

// Step names a state of the reporting dialogue. The value is what the
// session store persists in currentStep.
type Step string

const (
	StepStart          Step = session.StepStart
	StepSelectLanguage Step = "select_language"
	StepAnonymity      Step = "select_anonymity"
	StepEnterName      Step = "enter_name"
	StepConfirmPhone   Step = "confirm_phone"
	StepDifferentPhone Step = "enter_different_phone"
	StepMainMenu       Step = "incident_or_help"

	StepDate                Step = "collect_date"
	StepTime                Step = "collect_time"
	StepLocationDescription Step = "collect_location_description"
	StepLocationType        Step = "collect_exact_location_type"
	StepOtherLocation       Step = "collect_other_location_detail"
	StepViolenceType        Step = "collect_violence_type"
	StepOtherViolence       Step = "collect_other_violence_detail"
	StepPerpetratorKnown    Step = "collect_perpetrator_known"
	StepRelationship        Step = "collect_perpetrator_relationship"
	StepPerpetratorCount    Step = "collect_perpetrator_count"
	StepDescription         Step = "collect_description"
	StepEvidence            Step = "collect_evidence_prompt"
	StepHelpOrService       Step = "ask_help_or_service"

	StepServices        Step = "collect_services"
	StepAddMoreServices Step = "ask_add_more_services"
	StepOtherService    Step = "collect_other_service_detail"
	StepConsent         Step = "collect_consent"

	StepServicesDirect        Step = "select_services_direct"
	StepAddMoreServicesDirect Step = "ask_add_more_services_direct"
	StepOtherServiceDirect    Step = "collect_other_service_detail_direct"
	StepConsentDirect         Step = "collect_consent_direct_service"

	StepFollowUp    Step = "ask_follow_up"
	StepStatusCheck Step = "enter_reference_id_for_status"
)

var ErrUnknownStep = errors.New("unknown dialogue step")

// Steps is every step the engine handles.
var Steps = []Step{
	StepStart, StepSelectLanguage, StepAnonymity, StepEnterName, StepConfirmPhone,
	StepDifferentPhone, StepMainMenu,
	StepDate, StepTime, StepLocationDescription, StepLocationType, StepOtherLocation,
	StepViolenceType, StepOtherViolence, StepPerpetratorKnown, StepRelationship,
	StepPerpetratorCount, StepDescription, StepEvidence, StepHelpOrService,
	StepServices, StepAddMoreServices, StepOtherService, StepConsent,
	StepServicesDirect, StepAddMoreServicesDirect, StepOtherServiceDirect, StepConsentDirect,
	StepFollowUp, StepStatusCheck,
}

// Older deployments persisted these names.
var legacySteps = map[string]Step{
	"confirm_phone_number":               StepConfirmPhone,
	"collect_other_service_detail_multi": StepOtherService,
}

var knownSteps = func() map[Step]bool {
	m := make(map[Step]bool, len(Steps))
	for _, s := range Steps {
		m[s] = true
	}
	return m
}()

// ParseStep maps a persisted step name to a Step.
func ParseStep(name string) (Step, error) {
	if step, ok := legacySteps[name]; ok {
		return step, nil
	}
	step := Step(name)
	if !knownSteps[step] {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
	return step, nil
}
