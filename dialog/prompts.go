package dialog

import (
	"gbv_reporter/i18n"
)

// Option ids shared by several prompts.
const (
	OptionYes   = "option_yes"
	OptionNo    = "option_no"
	OptionOther = "option_other"

	OptionRemainAnonymous = "option_remain_anonymous"
	OptionShareDetails    = "option_share_details"

	OptionReportIncident = "option_report_incident"
	OptionRequestHelp    = "option_request_help"
	OptionCheckStatus    = "option_check_status"

	OptionSendNow = "option_send_now"
	OptionSkip    = "option_skip"

	OptionConsentYes = "option_yes_consent"
	OptionConsentNo  = "option_no_consent"
)

// choice pairs a stable option id with the catalog key of its label.
type choice struct {
	id  string
	key string
}

var (
	yesNo = []choice{{OptionYes, "option_yes"}, {OptionNo, "option_no"}}

	anonymityChoices = []choice{
		{OptionRemainAnonymous, "option_remain_anonymous"},
		{OptionShareDetails, "option_share_details"},
	}
	mainMenuChoices = []choice{
		{OptionReportIncident, "option_report_incident"},
		{OptionRequestHelp, "option_request_help"},
		{OptionCheckStatus, "option_check_status"},
	}
	evidenceChoices = []choice{{OptionSendNow, "option_send_now"}, {OptionSkip, "option_skip"}}
	consentChoices  = []choice{{OptionConsentYes, "option_yes_consent"}, {OptionConsentNo, "option_no_consent"}}

	timeRows = []choice{
		{"Morning", "option_morning"},
		{"Afternoon", "option_afternoon"},
		{"Evening", "option_evening"},
		{"Night", "option_night"},
		{"Not_Sure", "option_not_sure"},
	}
	locationRows = []choice{
		{"Home", "option_home"},
		{"School", "option_school"},
		{"Workplace", "option_workplace"},
		{"Street_or_Road", "option_street_road"},
		{"Perpetrators_house", "option_perpetrators_house"},
		{OptionOther, "option_other"},
	}
	violenceRows = []choice{
		{"Sexual_Assault", "option_sexual_assault"},
		{"Rape", "option_rape"},
		{"Defilement", "option_defilement"},
		{"Physical_Assault", "option_physical_assault"},
		{"Psychological_Abuse", "option_psychological_abuse"},
		{"Forced_Marriage", "option_forced_marriage"},
		{"Trafficking", "option_trafficking"},
		{"Online_Harassment", "option_online_harassment"},
		{OptionOther, "option_other"},
	}
	relationshipRows = []choice{
		{"Spouse_Partner", "option_spouse_partner"},
		{"Relative", "option_relative"},
		{"Teacher", "option_teacher"},
		{"Police_Authority", "option_police_authority"},
		{"Stranger", "option_stranger"},
		{OptionOther, "option_other"},
	}
	serviceRows = []choice{
		{"Police_Security", "option_police_security"},
		{"Medical_Support", "option_medical_support"},
		{"Legal_Advice", "option_legal_advice"},
		{"Counselling", "option_counselling"},
		{"Shelter_Safe_Home", "option_shelter_safe_home"},
		{OptionOther, "option_other"},
	}
)

// Prompter renders localized intents. It holds no per-user state.
type Prompter struct {
	tr *i18n.Translator
}

// NewPrompter renders intents with the catalog in tr.
func NewPrompter(tr *i18n.Translator) *Prompter {
	return &Prompter{tr: tr}
}

// T translates key for lang.
func (p *Prompter) T(lang i18n.Language, key string, args ...string) string {
	return p.tr.T(key, lang, args...)
}

// Text is a plain text intent for a catalog key.
func (p *Prompter) Text(lang i18n.Language, key string, args ...string) Intent {
	return Intent{Kind: IntentText, Body: p.tr.T(key, lang, args...)}
}

func (p *Prompter) choices(lang i18n.Language, bodyKey string, cs []choice) Intent {
	opts := make([]Option, 0, len(cs))
	for _, c := range cs {
		opts = append(opts, Option{ID: c.id, Title: p.tr.T(c.key, lang)})
	}
	return Intent{Kind: IntentChoices, Body: p.tr.T(bodyKey, lang), Options: opts}
}

func (p *Prompter) menu(lang i18n.Language, bodyKey, buttonKey, sectionKey string, rows []choice) Intent {
	opts := make([]Option, 0, len(rows))
	for _, r := range rows {
		opts = append(opts, Option{ID: r.id, Title: p.tr.T(r.key, lang)})
	}
	return Intent{
		Kind:     IntentMenu,
		Body:     p.tr.T(bodyKey, lang),
		Button:   p.tr.T(buttonKey, lang),
		Sections: []Section{{Title: p.tr.T(sectionKey, lang), Rows: opts}},
	}
}

// LanguageMenu lists every supported language under its own name.
func (p *Prompter) LanguageMenu(lang i18n.Language) Intent {
	rows := make([]Option, 0, 4)
	for _, l := range i18n.Languages() {
		rows = append(rows, Option{ID: string(l), Title: l.DisplayName()})
	}
	return Intent{
		Kind:     IntentMenu,
		Body:     p.tr.T("prompt_select_language", lang),
		Button:   p.tr.T("button_select_language", lang),
		Sections: []Section{{Title: p.tr.T("section_languages", lang), Rows: rows}},
	}
}

// Anonymity asks whether the report should be anonymous.
func (p *Prompter) Anonymity(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_anonymity", anonymityChoices)
}

// ConfirmPhone asks whether the sender's WhatsApp number may be used as contact.
func (p *Prompter) ConfirmPhone(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_confirm_phone", yesNo)
}

// MainMenu offers a new report, a status check or direct help.
func (p *Prompter) MainMenu(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_main_menu", mainMenuChoices)
}

// IncidentTime lists the times of day.
func (p *Prompter) IncidentTime(lang i18n.Language) Intent {
	return p.menu(lang, "prompt_incident_time", "button_select_time", "section_time_of_day", timeRows)
}

// LocationType lists the kinds of place an incident can happen.
func (p *Prompter) LocationType(lang i18n.Language) Intent {
	return p.menu(lang, "prompt_location_specific", "button_select_location", "section_location_types", locationRows)
}

// ViolenceType lists the violence categories.
func (p *Prompter) ViolenceType(lang i18n.Language) Intent {
	return p.menu(lang, "prompt_violence_type", "button_select_violence", "section_violence_types", violenceRows)
}

// PerpetratorKnown asks whether the reporter knows the perpetrator.
func (p *Prompter) PerpetratorKnown(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_perpetrator_known", yesNo)
}

// Relationship lists relationships to the perpetrator.
func (p *Prompter) Relationship(lang i18n.Language) Intent {
	return p.menu(lang, "prompt_perpetrator_relationship", "button_select_relationship", "section_relationship_types", relationshipRows)
}

// Evidence asks for a photo, video or voice note, or to skip.
func (p *Prompter) Evidence(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_media_upload", evidenceChoices)
}

// HelpOrService asks whether the reporter needs support services.
func (p *Prompter) HelpOrService(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_need_support_incident", yesNo)
}

// Services lists the support services.
func (p *Prompter) Services(lang i18n.Language) Intent {
	return p.menu(lang, "prompt_select_services", "button_select_service", "section_support_services", serviceRows)
}

// AddMoreServices asks whether to pick another service.
func (p *Prompter) AddMoreServices(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_add_more_services", yesNo)
}

// Consent asks for permission to share the report. Direct service
// requests get wording about being connected to a provider.
func (p *Prompter) Consent(lang i18n.Language, direct bool) Intent {
	key := "prompt_consent"
	if direct {
		key = "prompt_consent_direct_service"
	}
	return p.choices(lang, key, consentChoices)
}

// FollowUp asks whether the reporter wants status updates.
func (p *Prompter) FollowUp(lang i18n.Language) Intent {
	return p.choices(lang, "prompt_follow_up", yesNo)
}
