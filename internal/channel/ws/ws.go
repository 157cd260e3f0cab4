// Package ws implements a WebSocket channel: clients connect over HTTP,
// exchange JSON frames, and each chat id maps to its own session.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

// ChannelID is the identifier for the WebSocket channel.
const ChannelID = "ws"

const writeTimeout = 10 * time.Second

// Frame is the wire format in both directions. Clients send
// type "message"; the server answers with type "reply" or "error".
type Frame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	From      string `json:"from,omitempty"`
	ChatID    string `json:"chatId,omitempty"`
	ChatType  string `json:"chatType,omitempty"`
	Body      string `json:"body,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

// Channel implements domain.Channel as a WebSocket server.
type Channel struct {
	addr     string
	path     string
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	handler func(msg domain.InboundMessage)
	conns   map[string]*client // chat id → connection
	server  *http.Server
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// New creates a WebSocket channel listening on addr at path.
func New(addr, path string, log *logging.Logger) *Channel {
	if path == "" {
		path = "/ws"
	}
	return &Channel{
		addr: addr,
		path: path,
		log:  log.Sub("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[string]*client),
	}
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start binds the listener and serves connections in the background.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.server != nil {
		c.mu.Unlock()
		return fmt.Errorf("ws channel already started")
	}
	mux := http.NewServeMux()
	mux.HandleFunc(c.path, c.handleConnection)
	server := &http.Server{Addr: c.addr, Handler: mux}
	c.server = server
	c.mu.Unlock()

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("ws listen on %s: %w", c.addr, err)
	}
	c.log.Info().Str("addr", ln.Addr().String()).Str("path", c.path).Msg("websocket channel listening")

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			c.log.Error().Err(err).Msg("websocket server exited")
		}
	}()
	return nil
}

// Stop shuts the server down and closes all connections.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	c.server = nil
	conns := c.conns
	c.conns = make(map[string]*client)
	c.mu.Unlock()

	for _, cl := range conns {
		cl.conn.Close()
	}
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Send delivers a reply frame to the connection serving the chat.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	c.mu.Lock()
	cl := c.conns[msg.To]
	c.mu.Unlock()
	if cl == nil {
		return fmt.Errorf("ws: no connection for chat %q", msg.To)
	}
	return cl.write(Frame{
		Type:      "reply",
		ID:        uuid.New().String(),
		ChatID:    msg.To,
		Body:      msg.Body,
		ReplyToID: msg.ReplyToID,
	})
}

func (c *Channel) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	cl := &client{conn: conn}
	c.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket connection opened")

	defer func() {
		conn.Close()
		c.dropClient(cl)
		c.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket connection closed")
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if f.Type != "message" {
			cl.write(Frame{Type: "error", Body: fmt.Sprintf("unsupported frame type %q", f.Type)})
			continue
		}
		c.dispatch(cl, f)
	}
}

func (c *Channel) dispatch(cl *client, f Frame) {
	chatID := f.ChatID
	if chatID == "" {
		chatID = f.From
	}
	if chatID == "" {
		cl.write(Frame{Type: "error", Body: "message frame needs a chatId or from"})
		return
	}

	chatType := domain.ChatType(f.ChatType)
	if !chatType.Valid() {
		chatType = domain.ChatTypeDirect
	}
	id := f.ID
	if id == "" {
		id = uuid.New().String()
	}

	c.mu.Lock()
	c.conns[chatID] = cl
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}

	handler(domain.InboundMessage{
		ID:        id,
		ChannelID: ChannelID,
		From:      f.From,
		ChatID:    chatID,
		ChatType:  chatType,
		Body:      f.Body,
		Timestamp: time.Now(),
	})
}

func (c *Channel) dropClient(cl *client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for chatID, registered := range c.conns {
		if registered == cl {
			delete(c.conns, chatID)
		}
	}
}

func (cl *client) write(f Frame) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return cl.conn.WriteMessage(websocket.TextMessage, data)
}
