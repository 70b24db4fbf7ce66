package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/healer-app/messaging/internal/auth"
	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/config"
	"github.com/healer-app/messaging/internal/httpapi"
	"github.com/healer-app/messaging/internal/realtime"
)

const testSecret = "test-secret"

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&chat.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	chatSvc := chat.NewService(chat.NewRepo(db), nil)
	presence := realtime.NewPresence()
	protocol := realtime.NewProtocol(presence, chatSvc, nil)
	gateway := realtime.NewGateway(auth.NewJWTVerifier(testSecret), presence, protocol)

	router := httpapi.NewRouter(config.Config{JWTSecret: testSecret}, chatSvc, gateway)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func startClient(t *testing.T, srv *httptest.Server, selfID, counterpartID uint64) (*Client, *Agent) {
	t.Helper()
	token, err := auth.SignJWT(selfID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	agent := NewAgent(selfID, counterpartID)
	c := New(srv.URL, token, agent)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect user %d: %v", selfID, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	go func() { _ = c.Run(context.Background()) }()
	return c, agent
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClient_OfflineRecipientThenHistory(t *testing.T) {
	srv := startServer(t)

	// alice sends while u2 is offline
	aliceClient, alice := startClient(t, srv, 1, 2)
	if err := aliceClient.SendMessage("hi", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	waitFor(t, func() bool {
		msgs := alice.Messages()
		return len(msgs) == 1 && !msgs[0].InFlight && msgs[0].ID != 0
	}, "acknowledgment to reconcile the optimistic entry")

	// bob connects later and finds the message via the history fetch
	_, bob := startClient(t, srv, 2, 1)
	msgs := bob.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hi" || msgs[0].SenderID != 1 {
		t.Fatalf("expected one-element history with alice's message, got %+v", msgs)
	}
}

func TestClient_LiveDelivery(t *testing.T) {
	srv := startServer(t)

	aliceClient, alice := startClient(t, srv, 1, 2)
	_, bob := startClient(t, srv, 2, 1)

	if err := aliceClient.SendMessage("hello bob", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	waitFor(t, func() bool {
		msgs := bob.Messages()
		return len(msgs) == 1 && msgs[0].Content == "hello bob"
	}, "push to reach bob")

	waitFor(t, func() bool {
		msgs := alice.Messages()
		return len(msgs) == 1 && !msgs[0].InFlight
	}, "ack to reach alice")
}

func TestClient_TypingRelay(t *testing.T) {
	srv := startServer(t)

	aliceClient, _ := startClient(t, srv, 1, 2)
	_, bob := startClient(t, srv, 2, 1)

	aliceClient.SendTyping(true)
	waitFor(t, func() bool { return bob.CounterpartTyping() }, "typing indicator on")

	aliceClient.SendTyping(false)
	waitFor(t, func() bool { return !bob.CounterpartTyping() }, "typing indicator off")
}

func TestClient_EmptySendFailsServerSide(t *testing.T) {
	srv := startServer(t)

	aliceClient, alice := startClient(t, srv, 1, 2)

	// bypass client-side validation to exercise the server rejection
	req, err := alice.Send("x", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	req.Content = ""
	if err := aliceClient.writeEvent(realtime.EventSendMessage, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	// the optimistic "x" entry from Send disappears once the error arrives
	waitFor(t, func() bool {
		return len(alice.Messages()) == 0 && len(alice.Failures()) > 0
	}, "error to remove the optimistic entry")
}
