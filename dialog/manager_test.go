package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"gbv_reporter/i18n"
	"gbv_reporter/report"
	"gbv_reporter/session"
)

type sent struct {
	to   string
	kind IntentKind
	body string
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
	fail error
}

func (r *recordingSender) record(to string, kind IntentKind, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{to, kind, body})
	return r.fail
}

func (r *recordingSender) SendText(_ context.Context, to, body string) error {
	return r.record(to, IntentText, body)
}

func (r *recordingSender) SendChoices(_ context.Context, to, body string, _ []Option) error {
	return r.record(to, IntentChoices, body)
}

func (r *recordingSender) SendMenu(_ context.Context, to, body, _ string, _ []Section) error {
	return r.record(to, IntentMenu, body)
}

func (r *recordingSender) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.body
	}
	return out
}

func (r *recordingSender) count(body string) int {
	n := 0
	for _, b := range r.bodies() {
		if b == body {
			n++
		}
	}
	return n
}

type fakeReports struct {
	mu        sync.Mutex
	err       error
	saved     []report.Incident
	followUps map[string]bool
	notified  []string
}

func (f *fakeReports) SaveReport(_ context.Context, inc report.Incident) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, inc)
	return inc.ReferenceID, nil
}

func (f *fakeReports) FindByReference(_ context.Context, ref string) (*report.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inc := range f.saved {
		if inc.ReferenceID == ref {
			found := inc
			return &found, nil
		}
	}
	return nil, report.ErrNotFound
}

func (f *fakeReports) SetFollowUp(_ context.Context, ref string, want bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.followUps == nil {
		f.followUps = make(map[string]bool)
	}
	f.followUps[ref] = want
	return nil
}

func (f *fakeReports) ReportSubmitted(_ context.Context, inc report.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, inc.ReferenceID)
	return nil
}

// countingStore counts every call reaching the wrapped store.
type countingStore struct {
	session.Store
	mu    sync.Mutex
	calls int
}

func (c *countingStore) hit() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingStore) Get(ctx context.Context, id string) (*session.Session, error) {
	c.hit()
	return c.Store.Get(ctx, id)
}

func (c *countingStore) Create(ctx context.Context, id string) (*session.Session, error) {
	c.hit()
	return c.Store.Create(ctx, id)
}

func (c *countingStore) Update(ctx context.Context, id string, s *session.Session) error {
	c.hit()
	return c.Store.Update(ctx, id, s)
}

func (c *countingStore) Delete(ctx context.Context, id string) error {
	c.hit()
	return c.Store.Delete(ctx, id)
}

type harness struct {
	m       *Manager
	store   *countingStore
	sender  *recordingSender
	reports *fakeReports
	engine  *Engine
}

func newHarness() *harness {
	h := &harness{
		store:   &countingStore{Store: session.NewMemoryStore()},
		sender:  &recordingSender{},
		reports: &fakeReports{},
		engine:  newTestEngine(),
	}
	h.m = NewManager(Deps{
		Engine:    h.engine,
		Store:     h.store,
		Sender:    h.sender,
		Sink:      h.reports,
		Status:    h.reports,
		FollowUps: h.reports,
		Notifier:  h.reports,
	})
	return h
}

const user = "2348099990000"

func (h *harness) send(t *testing.T, msg Message) {
	t.Helper()
	if err := h.m.HandleMessage(context.Background(), Event{SenderID: user, Message: msg, ChannelSelfID: "2348000000001"}); err != nil {
		t.Fatalf("HandleMessage(%+v) error = %v", msg, err)
	}
}

func (h *harness) seed(t *testing.T, s *session.Session) {
	t.Helper()
	s.UserID = user
	if _, err := h.store.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	if err := h.store.Update(context.Background(), user, s); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	s, err := h.store.Store.Get(context.Background(), user)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (h *harness) t(key string, args ...string) string {
	return h.engine.prompts.T(i18n.English, key, args...)
}

func TestSelfEchoIsDropped(t *testing.T) {
	h := newHarness()
	err := h.m.HandleMessage(context.Background(), Event{
		SenderID:      "2348000000001",
		ChannelSelfID: "2348000000001",
		Message:       Text("hello"),
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.store.calls != 0 {
		t.Errorf("store touched %d times for an echo", h.store.calls)
	}
	if n := len(h.sender.bodies()); n != 0 {
		t.Errorf("%d messages sent for an echo", n)
	}
}

func TestFirstMessageStartsDialogue(t *testing.T) {
	h := newHarness()
	h.send(t, Text("hello"))

	s := h.session(t)
	if s == nil || s.CurrentStep != string(StepSelectLanguage) {
		t.Fatalf("session = %+v", s)
	}
	got := h.sender.bodies()
	if len(got) != 2 || got[0] != h.t("prompt_welcome") || got[1] != h.t("prompt_select_language") {
		t.Errorf("sent = %q", got)
	}
}

func TestRestartRecreatesSessionAtLanguageSelection(t *testing.T) {
	h := newHarness()
	s := at(StepViolenceType, i18n.English)
	s.ReportData.IncidentDate = "yesterday"
	h.seed(t, s)

	h.send(t, Text("RESTART"))

	got := h.session(t)
	if got == nil || got.CurrentStep != string(StepSelectLanguage) || got.ReportData.IncidentDate != "" {
		t.Fatalf("session after restart = %+v", got)
	}
	if h.sender.count(h.t("prompt_select_language")) != 1 {
		t.Errorf("language menu not sent: %q", h.sender.bodies())
	}

	h.send(t, Choice("igbo"))
	if got := h.session(t); got.CurrentStep != string(StepAnonymity) || got.Language != i18n.Igbo {
		t.Errorf("language pick after restart = %+v", got)
	}
}

func TestConsentRefusedDeletesWithoutSaving(t *testing.T) {
	h := newHarness()
	h.seed(t, at(StepConsent, i18n.English))

	h.send(t, Choice(OptionConsentNo))

	if s := h.session(t); s != nil {
		t.Fatalf("session still present: %+v", s)
	}
	if len(h.reports.saved) != 0 {
		t.Errorf("report saved without consent")
	}
	if h.sender.count(h.t("message_consent_refused")) != 1 {
		t.Errorf("sent = %q", h.sender.bodies())
	}
}

func TestSubmissionFailureKeepsSessionForRetry(t *testing.T) {
	h := newHarness()
	h.reports.err = errors.New("connection refused")
	seeded := at(StepConsent, i18n.English)
	seeded.ReportData.ViolenceType = "Rape"
	h.seed(t, seeded)

	h.send(t, Choice(OptionConsentYes))

	s := h.session(t)
	if s == nil || s.CurrentStep != string(StepConsent) {
		t.Fatalf("session = %+v", s)
	}
	if s.ReportData.ReferenceID != "" || s.ReportData.ConsentGiven != nil {
		t.Errorf("failed submission changed the stored session: %+v", s.ReportData)
	}
	if got := h.sender.bodies(); len(got) != 1 || got[0] != h.t("error_submission_failed") {
		t.Errorf("sent = %q", got)
	}

	h.reports.err = nil
	h.send(t, Choice(OptionConsentYes))
	if s := h.session(t); s.CurrentStep != string(StepFollowUp) {
		t.Errorf("retry ended at %s", s.CurrentStep)
	}
	if len(h.reports.saved) != 1 {
		t.Errorf("saved %d reports", len(h.reports.saved))
	}
}

func TestSubmissionThenFollowUp(t *testing.T) {
	h := newHarness()
	h.seed(t, at(StepConsent, i18n.English))

	h.send(t, Choice(OptionConsentYes))

	if len(h.reports.saved) != 1 || h.reports.saved[0].ReferenceID != testRef {
		t.Fatalf("saved = %+v", h.reports.saved)
	}
	if len(h.reports.notified) != 1 {
		t.Errorf("notifier calls = %d", len(h.reports.notified))
	}
	want := []string{h.t("message_report_submitted", testRef), h.t("message_escalation"), h.t("prompt_follow_up")}
	if got := h.sender.bodies(); len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("sent = %q", got)
	}

	h.send(t, Choice(OptionYes))
	if s := h.session(t); s != nil {
		t.Errorf("session survived follow-up: %+v", s)
	}
	if want, ok := h.reports.followUps[testRef]; !ok || !want {
		t.Errorf("follow-up preference = %v, %v", want, ok)
	}
}

func TestStatusLookup(t *testing.T) {
	h := newHarness()
	h.reports.saved = []report.Incident{
		{ReferenceID: "GBV-9-AAAA0000", SourceUserID: user, Status: report.StatusEscalated},
		{ReferenceID: "GBV-9-BBBB0000", SourceUserID: "2348011112222", Status: report.StatusClosed},
	}

	h.seed(t, at(StepStatusCheck, i18n.English))
	h.send(t, Text("GBV-9-AAAA0000"))
	if h.sender.count(h.t("message_status_found", "GBV-9-AAAA0000", "Escalated")) != 1 {
		t.Errorf("sent = %q", h.sender.bodies())
	}
	if h.session(t) != nil {
		t.Error("session survived status check")
	}

	h.seed(t, at(StepStatusCheck, i18n.English))
	h.send(t, Text("GBV-0-NOPE"))
	if h.sender.count(h.t("message_status_check", "GBV-0-NOPE")) != 1 {
		t.Errorf("sent = %q", h.sender.bodies())
	}

	// Someone else's report is answered like an unknown one.
	h.seed(t, at(StepStatusCheck, i18n.English))
	h.send(t, Text("GBV-9-BBBB0000"))
	if h.sender.count(h.t("message_status_check", "GBV-9-BBBB0000")) != 1 {
		t.Errorf("sent = %q", h.sender.bodies())
	}
	if h.sender.count(h.t("message_status_found", "GBV-9-BBBB0000", "Closed")) != 0 {
		t.Error("status of another reporter's report was disclosed")
	}
}

func TestDeliveryFailureDoesNotBlockTransition(t *testing.T) {
	h := newHarness()
	h.sender.fail = errors.New("graph api down")

	h.send(t, Text("hello"))

	if s := h.session(t); s == nil || s.CurrentStep != string(StepSelectLanguage) {
		t.Fatalf("session = %+v", s)
	}
	if n := len(h.sender.bodies()); n != 2 {
		t.Errorf("attempted %d sends, want 2", n)
	}
}

func TestConcurrentEventsForOneUserAreSerialized(t *testing.T) {
	h := newHarness()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.m.HandleMessage(context.Background(), Event{SenderID: user, Message: Text("hello there")})
		}()
	}
	wg.Wait()

	if n := h.sender.count(h.t("prompt_welcome")); n != 1 {
		t.Errorf("welcome sent %d times, want 1", n)
	}
	if n := h.sender.count(h.t("error_invalid_option")); n != 9 {
		t.Errorf("invalid-option replies = %d, want 9", n)
	}
}

func TestDifferentUsersAreIndependent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := h.m.HandleMessage(ctx, Event{SenderID: id, Message: Text("hi")}); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.m.HandleMessage(ctx, Event{SenderID: "a", Message: Choice("hausa")}); err != nil {
		t.Fatal(err)
	}

	a, _ := h.store.Store.Get(ctx, "a")
	b, _ := h.store.Store.Get(ctx, "b")
	if a.CurrentStep != string(StepAnonymity) || b.CurrentStep != string(StepSelectLanguage) {
		t.Errorf("a at %s, b at %s", a.CurrentStep, b.CurrentStep)
	}
}

func TestDeliverCollectsFailures(t *testing.T) {
	s := &recordingSender{fail: errors.New("boom")}
	intents := []Intent{{Kind: IntentText, Body: "one"}, {Kind: IntentMenu, Body: "two"}}

	err := Deliver(context.Background(), s, "u1", intents)

	var de *DeliveryError
	if !errors.As(err, &de) || len(de.Failed) != 2 || de.Failed[1].Index != 1 {
		t.Fatalf("Deliver() error = %v", err)
	}
	if !errors.Is(err, s.fail) {
		t.Error("DeliveryError does not unwrap to the send error")
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestUnreadableSessionStartsOver(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Set("session:"+user, `{"userId":"`+user+`","currentStep":42,"reportData":{}}`)

	store := session.NewRedisStore(rdb, 0)
	sender := &recordingSender{}
	engine := newTestEngine()
	m := NewManager(Deps{Engine: engine, Store: store, Sender: sender, Sink: &fakeReports{}})
	ctx := context.Background()

	if err := m.HandleMessage(ctx, Event{SenderID: user, Message: Text("hello")}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	got := sender.bodies()
	lostPlace := engine.prompts.T(i18n.English, "error_lost_place")
	if len(got) != 2 || got[0] != lostPlace || got[1] != engine.prompts.T(i18n.English, "prompt_select_language") {
		t.Fatalf("sent = %q", got)
	}
	s, err := store.Get(ctx, user)
	if err != nil || s.CurrentStep != string(StepSelectLanguage) {
		t.Fatalf("session = %+v, %v", s, err)
	}

	if err := m.HandleMessage(ctx, Event{SenderID: user, Message: Choice("english")}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if s, _ := store.Get(ctx, user); s.CurrentStep != string(StepAnonymity) {
		t.Errorf("step after recovery = %s", s.CurrentStep)
	}
}

// expiringSender jumps the Redis clock past the lock TTL on every send.
type expiringSender struct {
	recordingSender
	mr *miniredis.Miniredis
}

func (e *expiringSender) SendText(ctx context.Context, to, body string) error {
	e.mr.FastForward(31 * time.Second)
	return e.recordingSender.SendText(ctx, to, body)
}

func TestSlowDeliveryDoesNotLoseConcurrentAnswer(t *testing.T) {
	mr, rdb := newRedis(t)
	store := session.NewRedisStore(rdb, 0)
	m := NewManager(Deps{
		Engine: newTestEngine(),
		Store:  store,
		Locker: session.NewRedisLocker(rdb, 30*time.Second),
		Sender: &expiringSender{mr: mr},
		Sink:   &fakeReports{},
	})
	ctx := context.Background()

	seeded := at(StepTime, i18n.English)
	seeded.UserID = user
	if _, err := store.Create(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(ctx, user, seeded); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, answer := range []string{"Morning", "Night"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.HandleMessage(ctx, Event{SenderID: user, Message: Text(answer)}); err != nil {
				t.Errorf("HandleMessage(%s) error = %v", answer, err)
			}
		}()
	}
	wg.Wait()

	s, err := store.Get(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	d := s.ReportData
	answers := map[string]bool{d.IncidentTime: true, d.LocationText: true}
	if s.CurrentStep != string(StepLocationType) || !answers["Morning"] || !answers["Night"] {
		t.Errorf("step %s, time %q, location %q: one turn overwrote the other", s.CurrentStep, d.IncidentTime, d.LocationText)
	}
}

type lostLocker struct{}

type lostLease struct{}

func (lostLocker) Lock(context.Context, string) (session.Lease, error) { return lostLease{}, nil }

func (lostLease) Check(context.Context) error { return session.ErrLockLost }

func (lostLease) Unlock() {}

func TestLostLockAbortsTurn(t *testing.T) {
	h := newHarness()
	h.m.locker = lostLocker{}
	h.seed(t, at(StepTime, i18n.English))

	err := h.m.HandleMessage(context.Background(), Event{SenderID: user, Message: Text("Morning")})
	if !errors.Is(err, session.ErrLockLost) {
		t.Fatalf("HandleMessage() error = %v, want ErrLockLost", err)
	}
	if s := h.session(t); s.CurrentStep != string(StepTime) || s.ReportData.IncidentTime != "" {
		t.Errorf("session written without the lock: %+v", s)
	}
	if n := len(h.sender.bodies()); n != 0 {
		t.Errorf("%d messages sent for an unstored turn", n)
	}
}
