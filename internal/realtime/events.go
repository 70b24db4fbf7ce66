package realtime

import (
	"encoding/json"

	"github.com/healer-app/messaging/internal/chat"
)

// Client -> server events.
const (
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventPing        = "ping"
)

// Server -> client events.
const (
	EventMessageSent    = "messageSent"
	EventReceiveMessage = "receiveMessage"
	EventMessageError   = "messageError"
	EventUserTyping     = "userTyping"
	EventUserStopTyping = "userStopTyping"
	EventPong           = "pong"
)

// Error kinds carried by messageError.
const (
	ErrKindEmptyMessage  = "EMPTY_MESSAGE"
	ErrKindPersistFailed = "PERSIST_FAILED"
)

// Envelope is the inbound wire frame: an event name plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// SendMessageRequest is the sendMessage payload. The correlation id is chosen
// by the client and only echoed back; it is never persisted.
type SendMessageRequest struct {
	RecipientID    uint64 `json:"recipientId"`
	Content        string `json:"content"`
	Attachment     string `json:"attachment,omitempty"`
	AttachmentType string `json:"attachmentType,omitempty"`
	MimeType       string `json:"mimeType,omitempty"`
	FileName       string `json:"fileName,omitempty"`
	FileSize       int64  `json:"fileSize,omitempty"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

type TypingRequest struct {
	RecipientID uint64 `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

// MessagePayload is the messageSent / receiveMessage payload: the persisted
// message plus the sender's correlation id, if one was supplied.
type MessagePayload struct {
	chat.Message
	CorrelationID string `json:"correlationId,omitempty"`
}

type ErrorPayload struct {
	ErrorKind     string `json:"errorKind"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type TypingPayload struct {
	UserID uint64 `json:"userId"`
}
