package dialog

import (
	"strings"
	"time"

	"gbv_reporter/i18n"
	"gbv_reporter/report"
	"gbv_reporter/session"
)

// Action tells the Manager what to do with the session after a turn.
type Action int

const (
	// ActionSave persists Outcome.Session.
	ActionSave Action = iota
	// ActionKeep leaves the stored session exactly as it was.
	ActionKeep
	// ActionDelete ends the dialogue.
	ActionDelete
	// ActionReset deletes the session and stores Outcome.Session as a new one.
	ActionReset
	// ActionSubmit hands Outcome.Report to the report sink. The Manager
	// then calls Submitted or SubmitFailed for the final outcome.
	ActionSubmit
	// ActionLookup looks up Outcome.Lookup and then calls StatusResult.
	ActionLookup
)

// String returns the action name used in logs.
func (a Action) String() string {
	switch a {
	case ActionSave:
		return "save"
	case ActionKeep:
		return "keep"
	case ActionDelete:
		return "delete"
	case ActionReset:
		return "reset"
	case ActionSubmit:
		return "submit"
	case ActionLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Outcome is the result of one dialogue turn.
type Outcome struct {
	Session *session.Session
	Intents []Intent
	Action  Action

	Report   *report.Incident // ActionSubmit
	Lookup   string           // ActionLookup
	FollowUp *bool            // set when the follow-up question was answered
}

// Engine computes dialogue transitions. It does no I/O: Transition maps a
// session and an input to the next session and the messages to send.
type Engine struct {
	prompts  *Prompter
	now      func() time.Time
	newRefID func(time.Time) string
}

type EngineOption func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithReferenceIDs replaces NewReferenceID.
func WithReferenceIDs(gen func(time.Time) string) EngineOption {
	return func(e *Engine) { e.newRefID = gen }
}

// NewEngine returns an Engine that words its prompts with tr.
func NewEngine(tr *i18n.Translator, opts ...EngineOption) *Engine {
	e := &Engine{
		prompts:  NewPrompter(tr),
		now:      time.Now,
		newRefID: NewReferenceID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transition computes the outcome of feeding in to the session s.
// s is not modified.
func (e *Engine) Transition(s *session.Session, in Message) Outcome {
	lang := s.Language.OrDefault()
	if IsRestart(in) {
		return e.reset(s, lang, "message_restart")
	}

	step, err := ParseStep(s.CurrentStep)
	if err != nil {
		return e.LostPlace(s)
	}

	next := s.Clone()
	next.CurrentStep = string(step)
	t := &turn{e: e, in: in, prev: s, next: next, step: step, lang: lang}
	return stepDefs[step].handle(t)
}

// LostPlace starts s over at language selection after its stored state
// could not be used.
func (e *Engine) LostPlace(s *session.Session) Outcome {
	return e.reset(s, s.Language.OrDefault(), "error_lost_place")
}

// Prompt returns what step asks the user.
func (e *Engine) Prompt(step Step, lang i18n.Language) Intent {
	def, ok := stepDefs[step]
	if !ok {
		return e.prompts.LanguageMenu(i18n.Default)
	}
	t := &turn{e: e, step: step, lang: lang, prev: &session.Session{}, next: &session.Session{}}
	return def.prompt(t)
}

// Submitted is the outcome after the report sink stored the report
// under refID.
func (e *Engine) Submitted(s *session.Session, refID string) Outcome {
	next := s.Clone()
	lang := next.Language.OrDefault()
	if refID != "" {
		next.ReportData.ReferenceID = refID
	}

	ack := "message_escalation"
	if next.CurrentStep == string(StepConsentDirect) || next.ReportData.IsDirectServiceRequest {
		ack = "message_service_connection"
	}
	next.CurrentStep = string(StepFollowUp)

	return Outcome{
		Session: next,
		Action:  ActionSave,
		Intents: []Intent{
			e.prompts.Text(lang, "message_report_submitted", next.ReportData.ReferenceID),
			e.prompts.Text(lang, ack),
			e.prompts.FollowUp(lang),
		},
	}
}

// SubmitFailed is the outcome when the report sink rejected the report.
// The stored session is left untouched so the next message retries.
func (e *Engine) SubmitFailed(s *session.Session) Outcome {
	return Outcome{
		Session: s.Clone(),
		Action:  ActionKeep,
		Intents: []Intent{e.prompts.Text(s.Language.OrDefault(), "error_submission_failed")},
	}
}

// StatusResult is the outcome of a status lookup for ref. found is nil
// when no report matched.
func (e *Engine) StatusResult(s *session.Session, ref string, found *report.Incident) Outcome {
	lang := s.Language.OrDefault()
	msg := e.prompts.Text(lang, "message_status_check", ref)
	if found != nil {
		msg = e.prompts.Text(lang, "message_status_found", found.ReferenceID, string(found.Status))
	}
	return Outcome{Session: s.Clone(), Action: ActionDelete, Intents: []Intent{msg}}
}

// reset abandons s and starts over at language selection.
func (e *Engine) reset(s *session.Session, lang i18n.Language, key string) Outcome {
	fresh := session.New(s.UserID, e.now())
	fresh.CurrentStep = string(StepSelectLanguage)
	return Outcome{
		Session: fresh,
		Action:  ActionReset,
		Intents: []Intent{
			e.prompts.Text(lang, key),
			e.prompts.LanguageMenu(i18n.Default),
		},
	}
}

// turn is the working state of one Transition call.
type turn struct {
	e    *Engine
	in   Message
	prev *session.Session
	next *session.Session
	step Step
	lang i18n.Language
}

func (t *turn) p() *Prompter {
	return t.e.prompts
}

func (t *turn) data() *session.ReportData {
	return &t.next.ReportData
}

func (t *turn) text(key string, args ...string) Intent {
	return t.e.prompts.Text(t.lang, key, args...)
}

func (t *turn) advance(step Step, intents ...Intent) Outcome {
	t.next.CurrentStep = string(step)
	return Outcome{Session: t.next, Intents: intents, Action: ActionSave}
}

func (t *turn) end(intents ...Intent) Outcome {
	return Outcome{Session: t.next, Intents: intents, Action: ActionDelete}
}

// retry re-asks the current step without touching the collected data.
func (t *turn) retry() Outcome {
	s := t.prev.Clone()
	s.CurrentStep = string(t.step)
	return Outcome{
		Session: s,
		Action:  ActionSave,
		Intents: []Intent{t.text("error_invalid_option"), stepDefs[t.step].prompt(t)},
	}
}

// choose matches the input against the options of the current step's
// prompt. Typed text may also match an option's localized title.
func (t *turn) choose() (string, bool) {
	tok := t.in.Token()
	if tok == "" {
		return "", false
	}
	opts := stepDefs[t.step].prompt(t).Selectable()
	for _, o := range opts {
		if o.ID == tok {
			return o.ID, true
		}
	}
	if t.in.Kind == KindText {
		for _, o := range opts {
			if strings.EqualFold(o.Title, tok) {
				return o.ID, true
			}
		}
	}
	return "", false
}

// freeText accepts any non-empty text or option id.
func (t *turn) freeText() (string, bool) {
	tok := t.in.Token()
	return tok, tok != ""
}

type stepDef struct {
	prompt func(t *turn) Intent
	handle func(t *turn) Outcome
}

var stepDefs map[Step]stepDef

func textPrompt(key string) func(t *turn) Intent {
	return func(t *turn) Intent { return t.text(key) }
}

func init() {
	stepDefs = map[Step]stepDef{
		StepStart:          {func(t *turn) Intent { return t.p().LanguageMenu(i18n.Default) }, handleStart},
		StepSelectLanguage: {func(t *turn) Intent { return t.p().LanguageMenu(i18n.Default) }, handleLanguage},
		StepAnonymity:      {func(t *turn) Intent { return t.p().Anonymity(t.lang) }, handleAnonymity},
		StepEnterName:      {textPrompt("prompt_name"), handleName},
		StepConfirmPhone:   {func(t *turn) Intent { return t.p().ConfirmPhone(t.lang) }, handleConfirmPhone},
		StepDifferentPhone: {textPrompt("prompt_enter_different_phone"), handleDifferentPhone},
		StepMainMenu:       {func(t *turn) Intent { return t.p().MainMenu(t.lang) }, handleMainMenu},

		StepDate:                {textPrompt("prompt_incident_date"), handleDate},
		StepTime:                {func(t *turn) Intent { return t.p().IncidentTime(t.lang) }, handleTime},
		StepLocationDescription: {textPrompt("prompt_location_description"), handleLocationDescription},
		StepLocationType:        {func(t *turn) Intent { return t.p().LocationType(t.lang) }, handleLocationType},
		StepOtherLocation:       {textPrompt("prompt_other_location"), handleOtherLocation},
		StepViolenceType:        {func(t *turn) Intent { return t.p().ViolenceType(t.lang) }, handleViolenceType},
		StepOtherViolence:       {textPrompt("prompt_other_violence"), handleOtherViolence},
		StepPerpetratorKnown:    {func(t *turn) Intent { return t.p().PerpetratorKnown(t.lang) }, handlePerpetratorKnown},
		StepRelationship:        {func(t *turn) Intent { return t.p().Relationship(t.lang) }, handleRelationship},
		StepPerpetratorCount:    {textPrompt("prompt_perpetrator_count"), handlePerpetratorCount},
		StepDescription:         {textPrompt("prompt_incident_description"), handleDescription},
		StepEvidence:            {func(t *turn) Intent { return t.p().Evidence(t.lang) }, handleEvidence},
		StepHelpOrService:       {func(t *turn) Intent { return t.p().HelpOrService(t.lang) }, handleHelpOrService},

		StepFollowUp:    {func(t *turn) Intent { return t.p().FollowUp(t.lang) }, handleFollowUp},
		StepStatusCheck: {textPrompt("prompt_enter_reference_id"), handleStatusCheck},
	}
	for _, f := range []serviceFlow{incidentServices, directServices} {
		f.register(stepDefs)
	}
}
