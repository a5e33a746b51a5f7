package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"gbv_reporter/dialog"
	"gbv_reporter/logging"
	"gbv_reporter/security"
)

const maxWebhookBody = 1 << 20

// ErrInvalidSignature is returned when X-Hub-Signature-256 does not
// match the request body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookPayload is the envelope Meta posts for WhatsApp Business events.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Messages         []InboundMessage `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// InboundMessage is one user message inside a change.
type InboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *Reply `json:"button_reply,omitempty"`
		ListReply   *Reply `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Image    *MediaObject `json:"image,omitempty"`
	Video    *MediaObject `json:"video,omitempty"`
	Audio    *MediaObject `json:"audio,omitempty"`
	Document *MediaObject `json:"document,omitempty"`
}

type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MediaObject struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// Dispatcher hands a normalized event to the dialogue.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev dialog.Event) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, ev dialog.Event) error

// Dispatch calls f.
func (f DispatchFunc) Dispatch(ctx context.Context, ev dialog.Event) error { return f(ctx, ev) }

// WhatsAppWebhook serves the Cloud API webhook. AppSecret enables
// signature checks when set.
type WhatsAppWebhook struct {
	VerifyToken string
	AppSecret   string
	Dispatcher  Dispatcher
}

// ServeHTTP answers the GET verification handshake and accepts POSTed
// notifications.
func (h *WhatsAppWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verify answers Meta's subscription handshake.
func (h *WhatsAppWebhook) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" {
		http.Error(w, "missing verification parameters", http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || h.VerifyToken == "" || token != h.VerifyToken {
		logging.FromContext(r.Context()).Warn("webhook verification failed", "mode", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

func (h *WhatsAppWebhook) receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Warn("failed to read webhook body", "error", err)
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if h.AppSecret != "" {
		if err := VerifySignature(h.AppSecret, r.Header.Get("X-Hub-Signature-256"), body); err != nil {
			log.Warn("rejected webhook", "error", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to decode webhook", "error", err)
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if payload.Object != "whatsapp_business_account" {
		http.NotFound(w, r)
		return
	}

	// Meta retries anything but 200, so dispatch failures are only logged.
	ctx := context.WithoutCancel(r.Context())
	for _, ev := range Events(payload) {
		if err := h.Dispatcher.Dispatch(ctx, ev); err != nil {
			log.Error("failed to dispatch message", "user_id", ev.SenderID, "error", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// VerifySignature checks a "sha256=<hex>" header against body.
func VerifySignature(secret, header string, body []byte) error {
	hexSig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(hexSig)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Events flattens a payload into dialogue events. Status callbacks
// carry no messages and yield nothing.
func Events(p WebhookPayload) []dialog.Event {
	var events []dialog.Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			self := selfID(change.Value.Metadata)
			for _, m := range change.Value.Messages {
				if m.From == "" {
					continue
				}
				events = append(events, dialog.Event{
					SenderID:      m.From,
					Message:       Normalize(m),
					ChannelSelfID: self,
				})
			}
		}
	}
	return events
}

// Normalize strips the WhatsApp envelope. Types the dialogue cannot use
// become empty text so the user is asked again.
func Normalize(m InboundMessage) dialog.Message {
	switch m.Type {
	case "text":
		if m.Text != nil {
			return dialog.Text(security.SanitizeText(m.Text.Body))
		}
	case "interactive":
		if m.Interactive != nil {
			switch {
			case m.Interactive.ButtonReply != nil:
				return dialog.Choice(m.Interactive.ButtonReply.ID)
			case m.Interactive.ListReply != nil:
				return dialog.Choice(m.Interactive.ListReply.ID)
			}
		}
	case "button":
		if m.Button != nil {
			if m.Button.Payload != "" {
				return dialog.Choice(m.Button.Payload)
			}
			return dialog.Text(security.SanitizeText(m.Button.Text))
		}
	case "image", "video", "audio", "document":
		if media := m.media(); media != nil && media.ID != "" {
			return dialog.Media(media.ID, m.Type)
		}
	}
	return dialog.Text("")
}

func (m InboundMessage) media() *MediaObject {
	switch m.Type {
	case "image":
		return m.Image
	case "video":
		return m.Video
	case "audio":
		return m.Audio
	case "document":
		return m.Document
	}
	return nil
}

// selfID is the business number in the form users' ids take: digits only.
func selfID(md Metadata) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, md.DisplayPhoneNumber)
	if digits != "" {
		return digits
	}
	return md.PhoneNumberID
}
