package dialog

import "strings"

// MessageKind is the shape of a normalized inbound message.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindChoice MessageKind = "choice"
	KindMedia  MessageKind = "media"
)

// Message is an inbound message with the transport envelope stripped.
type Message struct {
	Kind       MessageKind `json:"type"`
	Body       string      `json:"body,omitempty"`
	SelectedID string      `json:"selectedId,omitempty"`
	MediaID    string      `json:"mediaId,omitempty"`
	MediaType  string      `json:"mediaType,omitempty"`
}

// Text is a typed message.
func Text(body string) Message {
	return Message{Kind: KindText, Body: body}
}

// Choice is a tap on the option with the given id.
func Choice(id string) Message {
	return Message{Kind: KindChoice, SelectedID: id}
}

// Media is an uploaded attachment.
func Media(id, mediaType string) Message {
	return Message{Kind: KindMedia, MediaID: id, MediaType: mediaType}
}

// Token is the value a step matches against: the body of a text
// message or the id of a selected option. Media has no token.
func (m Message) Token() string {
	switch m.Kind {
	case KindText:
		return strings.TrimSpace(m.Body)
	case KindChoice:
		return m.SelectedID
	default:
		return ""
	}
}

var restartTokens = []string{"restart", "reset", "menu", "start over"}

// IsRestart reports whether m asks to abandon the dialogue. Only typed
// text counts; option ids never restart.
func IsRestart(m Message) bool {
	if m.Kind != KindText {
		return false
	}
	body := strings.ToLower(strings.TrimSpace(m.Body))
	for _, tok := range restartTokens {
		if body == tok {
			return true
		}
	}
	return false
}
