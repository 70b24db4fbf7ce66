package client

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/realtime"
)

var (
	ErrNotConnected  = errors.New("not connected")
	ErrEmptyMessage  = errors.New("message needs text or an attachment")
	ErrBadAttachment = errors.New("unsupported attachment type")
)

// MessageView is one entry of the conversation as rendered to the user. An
// in-flight entry is the optimistic local copy awaiting the server
// acknowledgment; it carries only a correlation id until then.
type MessageView struct {
	ID            uint64
	CorrelationID string
	SenderID      uint64
	RecipientID   uint64
	Content       string

	Attachment     string
	AttachmentType string
	MimeType       string
	FileName       string
	FileSize       int64

	InFlight bool
}

// Attachment describes an already-uploaded media file to send.
type Attachment struct {
	URL      string
	Kind     string
	MimeType string
	FileName string
	FileSize int64
}

// Agent keeps the ordered conversation view for one counterpart and
// reconciles it against server events. All methods are safe for concurrent
// use; the read loop and the UI share it.
type Agent struct {
	selfID        uint64
	counterpartID uint64

	mu                sync.Mutex
	messages          []MessageView
	connected         bool
	counterpartTyping bool
	failures          []string

	newCorrelationID func() string
}

func NewAgent(selfID, counterpartID uint64) *Agent {
	return &Agent{
		selfID:           selfID,
		counterpartID:    counterpartID,
		newCorrelationID: uuid.NewString,
	}
}

// Send appends the optimistic in-flight entry and returns the wire request to
// emit. The entry is visible to the user before the server round-trip.
func (a *Agent) Send(content string, att *Attachment) (realtime.SendMessageRequest, error) {
	if strings.TrimSpace(content) == "" && att == nil {
		return realtime.SendMessageRequest{}, ErrEmptyMessage
	}
	if att != nil && !chat.ValidAttachmentType(att.Kind) {
		return realtime.SendMessageRequest{}, ErrBadAttachment
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return realtime.SendMessageRequest{}, ErrNotConnected
	}

	req := realtime.SendMessageRequest{
		RecipientID:   a.counterpartID,
		Content:       content,
		CorrelationID: a.newCorrelationID(),
	}
	view := MessageView{
		CorrelationID: req.CorrelationID,
		SenderID:      a.selfID,
		RecipientID:   a.counterpartID,
		Content:       content,
		InFlight:      true,
	}
	if att != nil {
		req.Attachment = att.URL
		req.AttachmentType = att.Kind
		req.MimeType = att.MimeType
		req.FileName = att.FileName
		req.FileSize = att.FileSize

		view.Attachment = att.URL
		view.AttachmentType = att.Kind
		view.MimeType = att.MimeType
		view.FileName = att.FileName
		view.FileSize = att.FileSize
	}

	a.messages = append(a.messages, view)
	return req, nil
}

// ApplyMessageSent replaces the matching optimistic entry in place with the
// authoritative message. If the entry is gone (already removed by an error),
// nothing is inserted.
func (a *Agent) ApplyMessageSent(p realtime.MessagePayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.messages {
		if p.CorrelationID != "" && a.messages[i].CorrelationID == p.CorrelationID {
			a.messages[i] = viewFrom(p)
			return
		}
	}
}

// ApplyMessageError drops the optimistic entry and records a transient
// failure notice. No automatic retry.
func (a *Agent) ApplyMessageError(p realtime.ErrorPayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.messages {
		if p.CorrelationID != "" && a.messages[i].CorrelationID == p.CorrelationID {
			a.messages = append(a.messages[:i], a.messages[i+1:]...)
			break
		}
	}
	a.failures = append(a.failures, "message failed: "+p.ErrorKind)
}

// ApplyReceive appends a pushed message for the active conversation,
// deduplicating by persisted id or correlation id. A push may beat the
// sender's own acknowledgment, so a matching in-flight entry is reconciled
// instead of appended.
func (a *Agent) ApplyReceive(p realtime.MessagePayload) {
	if p.SenderID != a.counterpartID && p.SenderID != a.selfID {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.counterpartTyping = false
	for i := range a.messages {
		if a.messages[i].ID != 0 && a.messages[i].ID == p.ID {
			return
		}
		if p.CorrelationID != "" && a.messages[i].CorrelationID == p.CorrelationID {
			a.messages[i] = viewFrom(p)
			return
		}
	}
	a.messages = append(a.messages, viewFrom(p))
}

// ApplyTyping updates the counterpart typing indicator.
func (a *Agent) ApplyTyping(userID uint64, isTyping bool) {
	if userID != a.counterpartID {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counterpartTyping = isTyping
}

// LoadHistory replaces the view with the authoritative conversation fetched
// over REST. Used on initial load and after a reconnect; optimistic entries
// from before the drop are discarded, their outcome is whatever the history
// says.
func (a *Agent) LoadHistory(msgs []chat.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = a.messages[:0]
	for _, m := range msgs {
		a.messages = append(a.messages, viewFrom(realtime.MessagePayload{Message: m}))
	}
}

// SetConnected freezes or unfreezes the composer. Sends fail with
// ErrNotConnected while disconnected.
func (a *Agent) SetConnected(connected bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = connected
	if !connected {
		a.counterpartTyping = false
	}
}

func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Agent) CounterpartTyping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counterpartTyping
}

// Messages returns a snapshot of the conversation view.
func (a *Agent) Messages() []MessageView {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]MessageView, len(a.messages))
	copy(out, a.messages)
	return out
}

// Failures drains the pending failure notices.
func (a *Agent) Failures() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.failures
	a.failures = nil
	return out
}

func viewFrom(p realtime.MessagePayload) MessageView {
	return MessageView{
		ID:             p.ID,
		CorrelationID:  p.CorrelationID,
		SenderID:       p.SenderID,
		RecipientID:    p.RecipientID,
		Content:        p.Content,
		Attachment:     p.Attachment,
		AttachmentType: p.AttachmentType,
		MimeType:       p.MimeType,
		FileName:       p.FileName,
		FileSize:       p.FileSize,
		InFlight:       false,
	}
}
