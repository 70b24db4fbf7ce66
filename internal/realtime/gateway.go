package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/healer-app/messaging/internal/auth"
	"github.com/healer-app/messaging/internal/common"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Gateway accepts connections, verifies the bearer credential, owns the
// presence table registration and routes inbound events to the protocol
// handler.
type Gateway struct {
	verifier auth.Verifier
	presence *Presence
	protocol *Protocol
	upgrader websocket.Upgrader
}

func NewGateway(verifier auth.Verifier, presence *Presence, protocol *Protocol) *Gateway {
	return &Gateway{
		verifier: verifier,
		presence: presence,
		protocol: protocol,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// credentialFrom extracts the bearer token from the Authorization header or
// the token query parameter (browser WebSocket clients cannot set headers).
func credentialFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// HandleWS is the connection handshake. Verification runs before any state is
// touched; on rejection the connection is refused and no presence entry ever
// exists.
func (g *Gateway) HandleWS(c *gin.Context) {
	credential := credentialFrom(c.Request)
	userID, err := g.verifier.Verify(c.Request.Context(), credential)
	if err != nil {
		common.Fail(c, http.StatusUnauthorized, 40101, "invalid credential")
		return
	}

	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed user=%d: %v", userID, err)
		return
	}

	client, err := newWSConn(ws)
	if err != nil {
		log.Printf("[gateway] connection id failed user=%d: %v", userID, err)
		_ = ws.Close()
		return
	}

	// Last-connected-wins: a reconnect overwrites the old entry. The old
	// handle is left to close on its own so a second tab is not torn down.
	g.presence.Set(userID, client)
	log.Printf("[gateway] connected user=%d conn=%s", userID, client.ID())

	defer func() {
		removed := g.presence.Remove(userID, client)
		_ = client.Close()
		log.Printf("[gateway] disconnected user=%d conn=%s removed=%t", userID, client.ID(), removed)
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go g.pingLoop(ctx, ws)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[gateway] read error user=%d: %v", userID, err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		// A frame that isn't valid JSON is dropped like any other bad
		// event; only transport errors end the session.
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("[gateway] malformed frame user=%d: %v", userID, err)
			continue
		}
		g.route(userID, client, env)
	}
}

// route dispatches one inbound event. Failures stay contained to the event:
// they are answered on the sender's connection and never take down the read
// loop or other connections.
func (g *Gateway) route(userID uint64, client Conn, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[gateway] event %q panicked user=%d: %v", env.Event, userID, r)
		}
	}()

	switch env.Event {
	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			log.Printf("[gateway] bad sendMessage payload user=%d: %v", userID, err)
			return
		}
		// The send must survive the sender disconnecting mid-flight:
		// durability is the contract, delivery is best-effort. So the
		// persistence context is not tied to the connection.
		g.protocol.HandleSend(context.Background(), userID, client, req)

	case EventTyping:
		var req TypingRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			log.Printf("[gateway] bad typing payload user=%d: %v", userID, err)
			return
		}
		g.protocol.HandleTyping(userID, req)

	case EventPing:
		_ = client.Send(EventPong, nil)

	default:
		// unknown events are a no-op
	}
}

func (g *Gateway) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
