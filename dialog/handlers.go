package dialog

import (
	"gbv_reporter/i18n"
	"gbv_reporter/session"
)

func handleStart(t *turn) Outcome {
	return t.advance(StepSelectLanguage, t.text("prompt_welcome"), t.p().LanguageMenu(i18n.Default))
}

func handleLanguage(t *turn) Outcome {
	lang, ok := i18n.ParseLanguage(t.in.Token())
	if !ok {
		return t.retry()
	}
	t.next.Language = lang
	t.lang = lang
	return t.advance(StepAnonymity,
		t.text("confirmation_language_set", lang.DisplayName()),
		t.p().Anonymity(lang),
	)
}

func handleAnonymity(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionShareDetails {
		t.data().IsAnonymous = session.Bool(false)
		return t.advance(StepEnterName, t.text("prompt_name"))
	}
	t.data().IsAnonymous = session.Bool(true)
	return t.advance(StepMainMenu, t.text("confirmation_anonymous"), t.p().MainMenu(t.lang))
}

func handleName(t *turn) Outcome {
	name, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().ReporterName = name
	return t.advance(StepConfirmPhone, t.p().ConfirmPhone(t.lang))
}

func handleConfirmPhone(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionNo {
		return t.advance(StepDifferentPhone, t.text("prompt_enter_different_phone"))
	}
	t.data().ReporterPhone = t.next.UserID
	return t.advance(StepMainMenu, t.text("confirmation_phone_saved"), t.p().MainMenu(t.lang))
}

func handleDifferentPhone(t *turn) Outcome {
	phone, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().ReporterPhone = phone
	return t.advance(StepMainMenu, t.text("confirmation_phone_saved"), t.p().MainMenu(t.lang))
}

func handleMainMenu(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	switch id {
	case OptionReportIncident:
		return t.advance(StepDate, t.text("message_report_start"), t.text("prompt_incident_date"))
	case OptionRequestHelp:
		return t.advance(StepServicesDirect, t.p().Services(t.lang))
	default:
		return t.advance(StepStatusCheck, t.text("prompt_enter_reference_id"))
	}
}

func handleDate(t *turn) Outcome {
	date, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().IncidentDate = date
	return t.advance(StepTime, t.p().IncidentTime(t.lang))
}

// The time menu is a suggestion; any answer is kept as given.
func handleTime(t *turn) Outcome {
	when, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	if id, picked := t.choose(); picked {
		when = id
	}
	t.data().IncidentTime = when
	return t.advance(StepLocationDescription, t.text("prompt_location_description"))
}

func handleLocationDescription(t *turn) Outcome {
	where, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().LocationText = where
	return t.advance(StepLocationType, t.p().LocationType(t.lang))
}

func handleLocationType(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionOther {
		return t.advance(StepOtherLocation, t.text("prompt_other_location"))
	}
	t.data().ExactLocationType = id
	return t.advance(StepViolenceType, t.p().ViolenceType(t.lang))
}

func handleOtherLocation(t *turn) Outcome {
	detail, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().ExactLocationType = otherAnswer(detail)
	return t.advance(StepViolenceType, t.p().ViolenceType(t.lang))
}

func handleViolenceType(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionOther {
		return t.advance(StepOtherViolence, t.text("prompt_other_violence"))
	}
	t.data().ViolenceType = id
	return t.advance(StepPerpetratorKnown, t.p().PerpetratorKnown(t.lang))
}

func handleOtherViolence(t *turn) Outcome {
	detail, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().ViolenceType = otherAnswer(detail)
	return t.advance(StepPerpetratorKnown, t.p().PerpetratorKnown(t.lang))
}

func handlePerpetratorKnown(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionYes {
		t.data().PerpetratorKnown = session.Bool(true)
		return t.advance(StepRelationship, t.p().Relationship(t.lang))
	}
	t.data().PerpetratorKnown = session.Bool(false)
	return t.advance(StepDescription, t.text("prompt_incident_description"))
}

func handleRelationship(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionOther {
		id = "Other"
	}
	t.data().PerpetratorRelationship = id
	return t.advance(StepPerpetratorCount, t.text("prompt_perpetrator_count"))
}

func handlePerpetratorCount(t *turn) Outcome {
	count, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().PerpetratorCount = count
	return t.advance(StepDescription, t.text("prompt_incident_description"))
}

func handleDescription(t *turn) Outcome {
	desc, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	t.data().Description = desc
	return t.advance(StepEvidence, t.p().Evidence(t.lang))
}

func handleEvidence(t *turn) Outcome {
	if t.in.Kind == KindMedia {
		if t.in.MediaID == "" {
			return t.retry()
		}
		d := t.data()
		d.MediaIDs = append(d.MediaIDs, t.in.MediaID)
		d.MediaAttached = true
		return t.advance(StepHelpOrService, t.text("message_media_received"), t.p().HelpOrService(t.lang))
	}

	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionSendNow {
		// Wait here for the upload.
		return t.advance(StepEvidence, t.text("message_upload_media"))
	}
	return t.advance(StepHelpOrService, t.p().HelpOrService(t.lang))
}

func handleHelpOrService(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	if id == OptionYes {
		return t.advance(incidentServices.pick, t.p().Services(t.lang))
	}
	return t.advance(incidentServices.consent, t.p().Consent(t.lang, false))
}

func handleStatusCheck(t *turn) Outcome {
	ref, ok := t.freeText()
	if !ok {
		return t.retry()
	}
	return Outcome{Session: t.next, Action: ActionLookup, Lookup: ref}
}

func handleFollowUp(t *turn) Outcome {
	id, ok := t.choose()
	if !ok {
		return t.retry()
	}
	want := id == OptionYes
	out := t.end(t.text("message_no_follow_up"))
	if want {
		out = t.end(t.text("confirmation_follow_up"))
	}
	out.FollowUp = &want
	return out
}

func otherAnswer(detail string) string {
	return "Other: " + detail
}
