package client

import (
	"fmt"
	"testing"

	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/realtime"
)

func newTestAgent() *Agent {
	a := NewAgent(1, 2)
	n := 0
	a.newCorrelationID = func() string {
		n++
		return fmt.Sprintf("corr-%d", n)
	}
	a.SetConnected(true)
	return a
}

func TestAgent_SendAppendsOptimisticEntry(t *testing.T) {
	a := newTestAgent()

	req, err := a.Send("hi", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if req.CorrelationID != "corr-1" || req.RecipientID != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}

	msgs := a.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected optimistic entry before round-trip, got %d", len(msgs))
	}
	if !msgs[0].InFlight || msgs[0].CorrelationID != "corr-1" || msgs[0].ID != 0 {
		t.Fatalf("unexpected optimistic entry: %+v", msgs[0])
	}
}

func TestAgent_SendValidation(t *testing.T) {
	a := newTestAgent()

	if _, err := a.Send("   ", nil); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := a.Send("", &Attachment{URL: "/uploads/x.bin", Kind: "binary"}); err != ErrBadAttachment {
		t.Fatalf("expected ErrBadAttachment, got %v", err)
	}
	if _, err := a.Send("", &Attachment{URL: "/uploads/x.png", Kind: chat.AttachmentImage}); err != nil {
		t.Fatalf("attachment-only send should pass: %v", err)
	}
}

func TestAgent_SendFrozenWhileDisconnected(t *testing.T) {
	a := newTestAgent()
	a.SetConnected(false)

	if _, err := a.Send("hi", nil); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(a.Messages()) != 0 {
		t.Fatalf("no entry may be appended while frozen")
	}
}

func TestAgent_MessageSentReplacesInPlace(t *testing.T) {
	a := newTestAgent()

	_, _ = a.Send("first", nil)
	req, _ := a.Send("second", nil)

	a.ApplyMessageSent(realtime.MessagePayload{
		Message:       chat.Message{ID: 42, SenderID: 1, RecipientID: 2, Content: "second"},
		CorrelationID: req.CorrelationID,
	})

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("replace must not change the count, got %d", len(msgs))
	}
	if msgs[1].ID != 42 || msgs[1].InFlight {
		t.Fatalf("expected authoritative entry at same position: %+v", msgs[1])
	}
	if !msgs[0].InFlight {
		t.Fatalf("unrelated entry must stay in flight")
	}

	// a duplicate acknowledgment must not append
	a.ApplyMessageSent(realtime.MessagePayload{
		Message:       chat.Message{ID: 42, SenderID: 1, RecipientID: 2, Content: "second"},
		CorrelationID: req.CorrelationID,
	})
	if len(a.Messages()) != 2 {
		t.Fatalf("duplicate ack appended an entry")
	}
}

func TestAgent_MessageErrorRemovesEntry(t *testing.T) {
	a := newTestAgent()

	req, _ := a.Send("doomed", nil)
	a.ApplyMessageError(realtime.ErrorPayload{ErrorKind: realtime.ErrKindPersistFailed, CorrelationID: req.CorrelationID})

	if len(a.Messages()) != 0 {
		t.Fatalf("failed entry must disappear")
	}
	failures := a.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected one failure notice, got %d", len(failures))
	}

	// late ack for the removed entry must not re-insert it
	a.ApplyMessageSent(realtime.MessagePayload{
		Message:       chat.Message{ID: 9, SenderID: 1, RecipientID: 2, Content: "doomed"},
		CorrelationID: req.CorrelationID,
	})
	if len(a.Messages()) != 0 {
		t.Fatalf("ack after error re-inserted the entry")
	}
}

func TestAgent_ReceiveAppendsAndDedupes(t *testing.T) {
	a := newTestAgent()

	push := realtime.MessagePayload{
		Message: chat.Message{ID: 7, SenderID: 2, RecipientID: 1, Content: "yo"},
	}
	a.ApplyReceive(push)
	a.ApplyReceive(push)

	msgs := a.Messages()
	if len(msgs) != 1 {
		t.Fatalf("duplicate push must be dropped, got %d entries", len(msgs))
	}
	if msgs[0].ID != 7 || msgs[0].SenderID != 2 {
		t.Fatalf("unexpected entry: %+v", msgs[0])
	}
}

func TestAgent_ReceiveIgnoresOtherConversations(t *testing.T) {
	a := newTestAgent()
	a.ApplyReceive(realtime.MessagePayload{
		Message: chat.Message{ID: 8, SenderID: 5, RecipientID: 1, Content: "wrong chat"},
	})
	if len(a.Messages()) != 0 {
		t.Fatalf("message from another conversation must be ignored")
	}
}

func TestAgent_PushBeatsAckRace(t *testing.T) {
	a := newTestAgent()

	// own message echoed back via push before the acknowledgment arrives
	req, _ := a.Send("fast", nil)
	echo := realtime.MessagePayload{
		Message:       chat.Message{ID: 11, SenderID: 1, RecipientID: 2, Content: "fast"},
		CorrelationID: req.CorrelationID,
	}
	a.ApplyReceive(echo)
	a.ApplyMessageSent(echo)

	msgs := a.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one entry after race, got %d", len(msgs))
	}
	if msgs[0].ID != 11 || msgs[0].InFlight {
		t.Fatalf("unexpected entry after race: %+v", msgs[0])
	}
}

func TestAgent_LoadHistoryReplacesView(t *testing.T) {
	a := newTestAgent()
	_, _ = a.Send("pending", nil)

	a.LoadHistory([]chat.Message{
		{ID: 1, SenderID: 1, RecipientID: 2, Content: "m1"},
		{ID: 2, SenderID: 2, RecipientID: 1, Content: "m2"},
	})

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected history of 2, got %d", len(msgs))
	}
	if msgs[0].ID != 1 || msgs[1].ID != 2 {
		t.Fatalf("history order lost: %+v", msgs)
	}
	for _, m := range msgs {
		if m.InFlight {
			t.Fatalf("history entries are never in flight")
		}
	}
}

func TestAgent_TypingIndicator(t *testing.T) {
	a := newTestAgent()

	a.ApplyTyping(2, true)
	if !a.CounterpartTyping() {
		t.Fatalf("expected typing indicator on")
	}
	a.ApplyTyping(5, false) // other user, ignored
	if !a.CounterpartTyping() {
		t.Fatalf("typing state changed by unrelated user")
	}
	a.ApplyTyping(2, false)
	if a.CounterpartTyping() {
		t.Fatalf("expected typing indicator off")
	}

	a.ApplyTyping(2, true)
	a.SetConnected(false)
	if a.CounterpartTyping() {
		t.Fatalf("disconnect must clear the typing indicator")
	}
}
