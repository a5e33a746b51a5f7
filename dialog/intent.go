package dialog

// IntentKind is the shape of an outbound message.
type IntentKind int

const (
	IntentText IntentKind = iota
	IntentChoices
	IntentMenu
)

// String returns the kind name used in logs.
func (k IntentKind) String() string {
	switch k {
	case IntentText:
		return "text"
	case IntentChoices:
		return "choices"
	case IntentMenu:
		return "menu"
	default:
		return "unknown"
	}
}

// MaxChoices is the most options a button set may carry.
const MaxChoices = 3

// Option is a selectable reply. ID is stable across languages and is
// what the engine receives back; Title is localized.
type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Section groups menu rows under a title.
type Section struct {
	Title string   `json:"title"`
	Rows  []Option `json:"rows"`
}

// Intent describes one outbound message independent of any transport.
type Intent struct {
	Kind     IntentKind
	Body     string
	Options  []Option  // IntentChoices
	Button   string    // IntentMenu
	Sections []Section // IntentMenu
}

// Selectable returns every option the intent offers, in display order.
func (i Intent) Selectable() []Option {
	switch i.Kind {
	case IntentChoices:
		return i.Options
	case IntentMenu:
		var out []Option
		for _, s := range i.Sections {
			out = append(out, s.Rows...)
		}
		return out
	default:
		return nil
	}
}
