package dialog

import (
	"context"
	"errors"
	"fmt"

	"gbv_reporter/logging"
	"gbv_reporter/report"
	"gbv_reporter/session"
)

// DialogManager processes inbound events.
type DialogManager interface {
	HandleMessage(ctx context.Context, ev Event) error
}

// Event is one inbound message. ChannelSelfID is the channel's own
// address; messages from it are echoes of what we sent.
type Event struct {
	SenderID      string  `json:"senderId"`
	Message       Message `json:"message"`
	ChannelSelfID string  `json:"channelSelfId,omitempty"`
}

// ReportSink stores a submitted report and returns its reference id.
// It must return an error whenever the report was not stored.
type ReportSink interface {
	SaveReport(ctx context.Context, inc report.Incident) (string, error)
}

// StatusLookup finds a stored report. It returns report.ErrNotFound
// when no report has the reference id.
type StatusLookup interface {
	FindByReference(ctx context.Context, ref string) (*report.Incident, error)
}

// FollowUpRecorder stores whether the reporter wants status updates.
type FollowUpRecorder interface {
	SetFollowUp(ctx context.Context, ref string, want bool) error
}

// Notifier is told about every stored report.
type Notifier interface {
	ReportSubmitted(ctx context.Context, inc report.Incident) error
}

// Deps wires a Manager. Status, FollowUps and Notifier are optional.
type Deps struct {
	Engine    *Engine
	Store     session.Store
	Locker    session.Locker
	Sender    Sender
	Sink      ReportSink
	Status    StatusLookup
	FollowUps FollowUpRecorder
	Notifier  Notifier
}

// Manager runs one dialogue turn per event: lock the user, load the
// session, transition, talk to the report sink, persist, send.
type Manager struct {
	engine    *Engine
	store     session.Store
	locker    session.Locker
	sender    Sender
	sink      ReportSink
	status    StatusLookup
	followUps FollowUpRecorder
	notifier  Notifier
}

// NewManager builds a Manager from d. Without a Locker, turns are
// serialized in process only.
func NewManager(d Deps) *Manager {
	locker := d.Locker
	if locker == nil {
		locker = session.NewKeyedMutex()
	}
	return &Manager{
		engine:    d.Engine,
		store:     d.Store,
		locker:    locker,
		sender:    d.Sender,
		sink:      d.Sink,
		status:    d.Status,
		followUps: d.FollowUps,
		notifier:  d.Notifier,
	}
}

// HandleMessage processes ev. Invalid input, unknown steps, unreadable
// sessions and failed submissions are answered to the user and are not
// errors. Errors are returned only when the session could not be loaded
// or stored, or the user's lock was lost before the turn was stored.
//
// The new state is stored before anything is sent, so a slow transport
// cannot hold the turn open past the lock.
func (m *Manager) HandleMessage(ctx context.Context, ev Event) error {
	if ev.SenderID == "" {
		return errors.New("event has no sender")
	}
	if ev.ChannelSelfID != "" && ev.SenderID == ev.ChannelSelfID {
		logging.FromContext(ctx).Debug("ignoring echo of our own message")
		return nil
	}

	ctx = logging.WithUserID(ctx, ev.SenderID)
	log := logging.FromContext(ctx)

	lease, err := m.locker.Lock(ctx, ev.SenderID)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", ev.SenderID, err)
	}
	defer lease.Unlock()

	var out Outcome
	sess, err := m.store.Get(ctx, ev.SenderID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess, err = m.store.Create(ctx, ev.SenderID)
		if err != nil {
			return fmt.Errorf("create session %s: %w", ev.SenderID, err)
		}
		out = m.engine.Transition(sess, ev.Message)
	case errors.Is(err, session.ErrCorrupt):
		log.Warn("discarding unreadable session", "error", err)
		sess = &session.Session{UserID: ev.SenderID}
		out = m.engine.LostPlace(sess)
	case err != nil:
		return fmt.Errorf("load session %s: %w", ev.SenderID, err)
	default:
		out = m.engine.Transition(sess, ev.Message)
	}

	out = m.resolve(ctx, ev.SenderID, out)

	log.Info("dialogue turn",
		"from_step", sess.CurrentStep,
		"to_step", out.Session.CurrentStep,
		"action", out.Action.String(),
		"intents", len(out.Intents),
	)

	if err := lease.Check(ctx); err != nil {
		return fmt.Errorf("store session %s: %w", ev.SenderID, err)
	}
	if err := m.persist(ctx, ev.SenderID, out); err != nil {
		return err
	}

	if err := Deliver(ctx, m.sender, ev.SenderID, out.Intents); err != nil {
		log.Error("failed to deliver messages", "error", err)
	}
	return nil
}

// resolve performs the I/O a submit or lookup outcome asks for and
// returns the final outcome of the turn.
func (m *Manager) resolve(ctx context.Context, userID string, out Outcome) Outcome {
	log := logging.FromContext(ctx)

	switch out.Action {
	case ActionSubmit:
		inc := *out.Report
		ref, err := m.sink.SaveReport(ctx, inc)
		if err != nil {
			log.Error("failed to save report", "reference_id", inc.ReferenceID, "error", err)
			return m.engine.SubmitFailed(out.Session)
		}
		if ref != "" {
			inc.ReferenceID = ref
		}
		log.Info("report submitted", "reference_id", inc.ReferenceID)
		if m.notifier != nil {
			if err := m.notifier.ReportSubmitted(ctx, inc); err != nil {
				log.Error("failed to queue escalation", "reference_id", inc.ReferenceID, "error", err)
			}
		}
		return m.engine.Submitted(out.Session, inc.ReferenceID)

	case ActionLookup:
		var found *report.Incident
		if m.status != nil {
			inc, err := m.status.FindByReference(ctx, out.Lookup)
			switch {
			case err == nil && inc.SourceUserID == userID:
				found = inc
			case err == nil:
				log.Warn("status lookup for another reporter's report", "reference_id", out.Lookup)
			case errors.Is(err, report.ErrNotFound):
			default:
				log.Error("status lookup failed", "reference_id", out.Lookup, "error", err)
			}
		}
		return m.engine.StatusResult(out.Session, out.Lookup, found)
	}

	if out.FollowUp != nil && m.followUps != nil {
		ref := out.Session.ReportData.ReferenceID
		if ref != "" {
			if err := m.followUps.SetFollowUp(ctx, ref, *out.FollowUp); err != nil {
				log.Error("failed to record follow-up preference", "reference_id", ref, "error", err)
			}
		}
	}
	return out
}

func (m *Manager) persist(ctx context.Context, userID string, out Outcome) error {
	switch out.Action {
	case ActionKeep:
		return nil
	case ActionDelete:
		if err := m.store.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete session %s: %w", userID, err)
		}
		return nil
	case ActionReset:
		if err := m.store.Delete(ctx, userID); err != nil {
			return fmt.Errorf("reset session %s: %w", userID, err)
		}
		if _, err := m.store.Create(ctx, userID); err != nil {
			return fmt.Errorf("reset session %s: %w", userID, err)
		}
	}
	// Update is a no-op for a session deleted earlier in this turn.
	if err := m.store.Update(ctx, userID, out.Session); err != nil {
		return fmt.Errorf("save session %s: %w", userID, err)
	}
	return nil
}
