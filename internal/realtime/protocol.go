package realtime

import (
	"context"
	"log"
	"strings"

	"github.com/healer-app/messaging/internal/chat"
)

// MessageStore is the durable message collaborator (implemented by
// chat.Service).
type MessageStore interface {
	CreateMessage(ctx context.Context, m *chat.Message) error
	FindConversation(ctx context.Context, userA, userB uint64) ([]chat.Message, error)
}

// OfflinePublisher hands a persisted-but-undelivered message to the external
// notification service. Best-effort; may be nil.
type OfflinePublisher interface {
	PublishOffline(ctx context.Context, m *chat.Message) error
}

// Protocol runs the send/acknowledge/error/typing state machine. It reads the
// presence table but never mutates it; registration belongs to the gateway.
type Protocol struct {
	presence *Presence
	store    MessageStore
	offline  OfflinePublisher
}

func NewProtocol(presence *Presence, store MessageStore, offline OfflinePublisher) *Protocol {
	return &Protocol{presence: presence, store: store, offline: offline}
}

// HandleSend walks one send attempt through
// Received -> Validated -> Persisted -> Delivered|Undeliverable -> Acknowledged.
// The acknowledgment to the sender is unconditional once the message is
// persisted; recipient absence is not an error.
func (p *Protocol) HandleSend(ctx context.Context, senderID uint64, sender Conn, req SendMessageRequest) {
	if strings.TrimSpace(req.Content) == "" && req.Attachment == "" {
		p.sendError(sender, ErrKindEmptyMessage, req.CorrelationID)
		return
	}

	m := &chat.Message{
		SenderID:       senderID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		Attachment:     req.Attachment,
		AttachmentType: req.AttachmentType,
		MimeType:       req.MimeType,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
	}
	if err := p.store.CreateMessage(ctx, m); err != nil {
		log.Printf("[protocol] persist failed sender=%d recipient=%d err=%v", senderID, req.RecipientID, err)
		p.sendError(sender, ErrKindPersistFailed, req.CorrelationID)
		return
	}

	payload := MessagePayload{Message: *m, CorrelationID: req.CorrelationID}

	if rc, ok := p.presence.Get(req.RecipientID); ok {
		// Push failure is a transport drop, not a send failure; the message
		// is already durable.
		if err := rc.Send(EventReceiveMessage, payload); err != nil {
			log.Printf("[protocol] push to recipient=%d failed: %v", req.RecipientID, err)
		}
	} else if p.offline != nil {
		if err := p.offline.PublishOffline(ctx, m); err != nil {
			log.Printf("[protocol] offline publish failed message=%d: %v", m.ID, err)
		}
	}

	if err := sender.Send(EventMessageSent, payload); err != nil {
		log.Printf("[protocol] ack to sender=%d failed: %v", senderID, err)
	}
}

// HandleTyping relays the typing signal if the recipient is reachable.
// No persistence, no acknowledgment.
func (p *Protocol) HandleTyping(senderID uint64, req TypingRequest) {
	rc, ok := p.presence.Get(req.RecipientID)
	if !ok {
		return
	}
	event := EventUserTyping
	if !req.IsTyping {
		event = EventUserStopTyping
	}
	_ = rc.Send(event, TypingPayload{UserID: senderID})
}

func (p *Protocol) sendError(sender Conn, kind, correlationID string) {
	if err := sender.Send(EventMessageError, ErrorPayload{ErrorKind: kind, CorrelationID: correlationID}); err != nil {
		log.Printf("[protocol] write error event failed: %v", err)
	}
}
