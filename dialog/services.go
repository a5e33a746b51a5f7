package dialog

import (
	"gbv_reporter/report"
	"gbv_reporter/session"
)

// serviceFlow is the multi-select service picker followed by consent.
// Incident reports and direct help requests run the same flow under
// different step names.
type serviceFlow struct {
	direct  bool
	pick    Step
	addMore Step
	other   Step
	consent Step
}

var (
	incidentServices = serviceFlow{
		pick:    StepServices,
		addMore: StepAddMoreServices,
		other:   StepOtherService,
		consent: StepConsent,
	}
	directServices = serviceFlow{
		direct:  true,
		pick:    StepServicesDirect,
		addMore: StepAddMoreServicesDirect,
		other:   StepOtherServiceDirect,
		consent: StepConsentDirect,
	}
)

func (f serviceFlow) register(defs map[Step]stepDef) {
	defs[f.pick] = stepDef{func(t *turn) Intent { return t.p().Services(t.lang) }, f.handlePick}
	defs[f.addMore] = stepDef{func(t *turn) Intent { return t.p().AddMoreServices(t.lang) }, f.handleAddMore}
	defs[f.other] = stepDef{textPrompt("prompt_other_service"), f.handleOther}
	defs[f.consent] = stepDef{f.consentPrompt, f.handleConsent}
}

func (f serviceFlow) consentPrompt(t *turn) Intent {
	return t.p().Consent(t.lang, f.direct || t.prev.ReportData.IsDirectServiceRequest)
}

func (f serviceFlow) handlePick(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if f.direct {
		t.data().IsDirectServiceRequest = true
	}
	if id == OptionOther {
		return t.advance(f.other, t.text("prompt_other_service"))
	}
	t.data().ServicesRequested = append(t.data().ServicesRequested, id)
	return t.advance(f.addMore, t.p().AddMoreServices(t.lang))
}

func (f serviceFlow) handleAddMore(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionYes {
		return t.advance(f.pick, t.p().Services(t.lang))
	}
	return t.advance(f.consent, t.p().Consent(t.lang, f.direct || t.next.ReportData.IsDirectServiceRequest))
}

// "Other" free text always returns to the add-more question.
func (f serviceFlow) handleOther(t *turn) Outcome {
	detail, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().ServicesRequested = append(t.data().ServicesRequested, otherAnswer(detail))
	return t.advance(f.addMore, t.p().AddMoreServices(t.lang))
}

func (f serviceFlow) handleConsent(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionConsentNo {
		t.data().ConsentGiven = session.Bool(false)
		return t.end(t.text("message_consent_refused"))
	}

	now := t.e.now()
	t.data().ConsentGiven = session.Bool(true)
	t.data().ReferenceID = t.e.newRefID(now)
	inc := report.FromSession(t.next, now)
	return Outcome{Session: t.next, Action: ActionSubmit, Report: &inc}
}
