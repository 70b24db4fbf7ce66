package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/realtime"
)

// Client owns the websocket transport for one conversation and feeds server
// events into the Agent. History is re-fetched over REST on every (re)connect
// because the server keeps no replay buffer.
type Client struct {
	baseURL string
	token   string
	agent   *Agent
	httpc   *http.Client

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(baseURL, token string, agent *Agent) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		agent:   agent,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) wsURL() string {
	u := strings.Replace(c.baseURL, "http", "ws", 1)
	return u + "/ws?token=" + c.token
}

// Connect dials the gateway, loads the conversation history and unfreezes the
// composer. Run must be called afterwards to pump events.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	history, err := c.FetchHistory(ctx)
	if err != nil {
		_ = conn.Close()
		return err
	}
	c.agent.LoadHistory(history)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.agent.SetConnected(true)
	return nil
}

// Run reads server events until the connection drops, then freezes the
// composer. Reconnecting is the caller's decision (Connect again).
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	defer c.agent.SetConnected(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var env realtime.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env realtime.Envelope) {
	switch env.Event {
	case realtime.EventMessageSent:
		var p realtime.MessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("[client] bad messageSent payload: %v", err)
			return
		}
		c.agent.ApplyMessageSent(p)

	case realtime.EventReceiveMessage:
		var p realtime.MessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("[client] bad receiveMessage payload: %v", err)
			return
		}
		c.agent.ApplyReceive(p)

	case realtime.EventMessageError:
		var p realtime.ErrorPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("[client] bad messageError payload: %v", err)
			return
		}
		c.agent.ApplyMessageError(p)

	case realtime.EventUserTyping, realtime.EventUserStopTyping:
		var p realtime.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.agent.ApplyTyping(p.UserID, env.Event == realtime.EventUserTyping)
	}
}

// SendMessage runs the optimistic send: the agent appends the in-flight entry
// first, then the request goes out.
func (c *Client) SendMessage(content string, att *Attachment) error {
	req, err := c.agent.Send(content, att)
	if err != nil {
		return err
	}
	return c.writeEvent(realtime.EventSendMessage, req)
}

// SendTyping relays the typing state, best-effort.
func (c *Client) SendTyping(isTyping bool) {
	_ = c.writeEvent(realtime.EventTyping, realtime.TypingRequest{
		RecipientID: c.agent.counterpartID,
		IsTyping:    isTyping,
	})
}

func (c *Client) writeEvent(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(realtime.Envelope{Event: event, Data: raw})
}

// FetchHistory loads the full ordered conversation from the REST interface.
func (c *Client) FetchHistory(ctx context.Context) ([]chat.Message, error) {
	url := fmt.Sprintf("%s/api/messages/%d", c.baseURL, c.agent.counterpartID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history fetch: status %d", resp.StatusCode)
	}

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Messages []chat.Message `json:"messages"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Code != 0 {
		return nil, fmt.Errorf("history fetch: %s", body.Message)
	}
	return body.Data.Messages, nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent.SetConnected(false)
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
