package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sender delivers intents over a messaging channel.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendChoices(ctx context.Context, to, body string, options []Option) error
	SendMenu(ctx context.Context, to, body, button string, sections []Section) error
}

// FailedIntent is an intent the Sender could not deliver.
type FailedIntent struct {
	Index  int
	Intent Intent
	Err    error
}

// DeliveryError lists every intent of a turn that failed to send.
type DeliveryError struct {
	To     string
	Failed []FailedIntent
}

// Error lists every failed send.
func (e *DeliveryError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("#%d %s: %v", f.Index, f.Intent.Kind, f.Err))
	}
	return fmt.Sprintf("delivery to %s failed for %d intent(s): %s", e.To, len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap returns the individual send errors.
func (e *DeliveryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// Deliver sends intents in order. A failed send does not stop the
// remaining ones; all failures are returned as a *DeliveryError.
func Deliver(ctx context.Context, s Sender, to string, intents []Intent) error {
	var failed []FailedIntent
	for i, in := range intents {
		if err := send(ctx, s, to, in); err != nil {
			failed = append(failed, FailedIntent{Index: i, Intent: in, Err: err})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &DeliveryError{To: to, Failed: failed}
}

var errUnknownIntent = errors.New("unknown intent kind")

func send(ctx context.Context, s Sender, to string, in Intent) error {
	switch in.Kind {
	case IntentText:
		return s.SendText(ctx, to, in.Body)
	case IntentChoices:
		return s.SendChoices(ctx, to, in.Body, in.Options)
	case IntentMenu:
		return s.SendMenu(ctx, to, in.Body, in.Button, in.Sections)
	default:
		return fmt.Errorf("%w: %d", errUnknownIntent, in.Kind)
	}
}
