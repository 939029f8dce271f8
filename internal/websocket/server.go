package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/yegors/airport-sim/internal/display"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/input"
	"github.com/yegors/airport-sim/pkg/logger"
)

// Message types
const (
	MessageTypeFrame         = "frame"          // Server pushes a presentation frame
	MessageTypeEvent         = "event"          // Server pushes a lifecycle event
	MessageTypeCommand       = "command"        // Client issues a command
	MessageTypeCommandResult = "command_result" // Server acknowledges a command
)

// ErrNoSubmitter is reported to viewers when commands are disabled
var ErrNoSubmitter = errors.New("commands are not accepted")

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type" msgpack:"type"`
	Data any    `json:"data" msgpack:"data"`
}

// CommandRequest is the payload of a command message
type CommandRequest struct {
	Command string `json:"command" msgpack:"command"`
}

// CommandResult is the payload of a command_result message
type CommandResult struct {
	Command  string `json:"command" msgpack:"command"`
	Accepted bool   `json:"accepted" msgpack:"accepted"`
	Error    string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	binary bool // msgpack frames instead of JSON text
}

type unicast struct {
	client  *Client
	message *Message
}

// Server is the viewer hub. Only Run touches the client set and closes
// client send channels.
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan unicast
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *logger.Logger

	submitMu   sync.RWMutex
	submitter  input.Submitter
	frameEvery uint64

	clientCount atomic.Int64
	dropped     atomic.Uint64
	stopOnce    sync.Once
}

// NewServer creates a hub that forwards every frameEvery-th frame
func NewServer(log *logger.Logger, frameEvery int) *Server {
	if frameEvery <= 0 {
		frameEvery = 1
	}
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		direct:     make(chan unicast, 16),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger:     log.Named("web-socket"),
		frameEvery: uint64(frameEvery),
	}
}

// SetSubmitter sets where client commands go
func (s *Server) SetSubmitter(sub input.Submitter) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.submitter = sub
}

// ClientCount returns the number of registered clients
func (s *Server) ClientCount() int { return int(s.clientCount.Load()) }

// Dropped returns the number of messages not delivered because a buffer was full
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Run serves the hub until ctx is cancelled, then closes every client
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")
	defer s.stopOnce.Do(func() { close(s.done) })

	for {
		select {
		case <-ctx.Done():
			for client := range s.clients {
				s.remove(client)
			}
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.clients[client] = true
			s.clientCount.Store(int64(len(s.clients)))
			s.logger.Debug("Client registered", logger.Int("client_count", len(s.clients)))

		case client := <-s.unregister:
			s.remove(client)
			s.logger.Debug("Client unregistered", logger.Int("client_count", len(s.clients)))

		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Slow viewer, drop it rather than stall the hub
					s.dropped.Add(1)
					s.remove(client)
				}
			}

		case u := <-s.direct:
			if !s.clients[u.client] {
				continue
			}
			select {
			case u.client.send <- u.message:
			default:
				s.dropped.Add(1)
			}
		}
	}
}

func (s *Server) remove(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.send)
	s.clientCount.Store(int64(len(s.clients)))
}

// HandleConnection upgrades the request. ?encoding=msgpack selects binary frames.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Handling new WebSocket connection request",
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("user_agent", r.UserAgent()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan *Message, sendBuffer),
		server: s,
		binary: r.URL.Query().Get("encoding") == "msgpack",
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// Broadcast queues a message for every client without blocking
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
	default:
		s.dropped.Add(1)
	}
}

// ShowFrame forwards every frameEvery-th frame to the viewers
func (s *Server) ShowFrame(f *display.Frame) {
	if f.Seq%s.frameEvery != 0 || s.ClientCount() == 0 {
		return
	}
	s.Broadcast(&Message{Type: MessageTypeFrame, Data: f})
}

// Name and Handle make the hub an event sink
func (s *Server) Name() string { return "websocket" }

func (s *Server) Handle(_ context.Context, e events.Event) error {
	if s.ClientCount() > 0 {
		s.Broadcast(&Message{Type: MessageTypeEvent, Data: e})
	}
	return nil
}

func (s *Server) reply(client *Client, message *Message) {
	select {
	case s.direct <- unicast{client: client, message: message}:
	case <-s.done:
	}
}

// handleCommand submits a client command and reports the outcome
func (s *Server) handleCommand(req CommandRequest) CommandResult {
	result := CommandResult{Command: req.Command}
	s.submitMu.RLock()
	sub := s.submitter
	s.submitMu.RUnlock()

	cmd, err := input.ParseCommand(req.Command)
	if err == nil && sub == nil {
		err = ErrNoSubmitter
	}
	if err == nil {
		err = sub.Submit(cmd)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Accepted = true
	return result
}

func decodeMessage(messageType int, data []byte) (string, CommandRequest, error) {
	var message struct {
		Type string         `json:"type" msgpack:"type"`
		Data CommandRequest `json:"data" msgpack:"data"`
	}
	var err error
	if messageType == websocket.BinaryMessage {
		err = msgpack.Unmarshal(data, &message)
	} else {
		err = json.Unmarshal(data, &message)
	}
	return message.Type, message.Data, err
}

func encodeMessage(message *Message, binary bool) (int, []byte, error) {
	if binary {
		data, err := msgpack.Marshal(message)
		return websocket.BinaryMessage, data, err
	}
	data, err := json.Marshal(message)
	return websocket.TextMessage, data, err
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		kind, req, err := decodeMessage(messageType, data)
		if err != nil {
			c.server.logger.Warn("Failed to parse WebSocket message", logger.Error(err))
			continue
		}
		if kind != MessageTypeCommand {
			c.server.logger.Debug("Ignoring WebSocket message", logger.String("type", kind))
			continue
		}

		result := c.server.handleCommand(req)
		c.server.logger.Debug("Command from viewer",
			logger.String("command", req.Command),
			logger.Bool("accepted", result.Accepted))
		c.server.reply(c, &Message{Type: MessageTypeCommandResult, Data: result})
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		messageType, data, err := encodeMessage(message, c.binary)
		if err != nil {
			c.server.logger.Error("Failed to marshal message",
				logger.Error(err),
				logger.String("message_type", message.Type))
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(messageType, data); err != nil {
			c.server.logger.Debug("WebSocket write failed", logger.Error(err))
			// Closing the conn ends readPump, which unregisters and closes send
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
