// Package messaging pushes committed document revisions to connected
// websocket clients.
package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/security"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// RevisionMessage is sent to clients after every committed mutation.
type RevisionMessage struct {
	Type     string `json:"type"`
	Revision uint64 `json:"revision"`
	Command  string `json:"command"`
}

// ProjectClient represents a single connected editor tab.
type ProjectClient struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// ProjectBroadcaster manages connected clients and fans revision messages
// out to them.
type ProjectBroadcaster struct {
	clients    map[*ProjectClient]bool
	register   chan *ProjectClient
	unregister chan *ProjectClient
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logging.ChanneledLogger
}

// NewProjectBroadcaster creates a new broadcaster instance. Start it with Run.
func NewProjectBroadcaster(logger *logging.ChanneledLogger, buffer int) *ProjectBroadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &ProjectBroadcaster{
		clients:    make(map[*ProjectClient]bool),
		register:   make(chan *ProjectClient),
		unregister: make(chan *ProjectClient),
		broadcast:  make(chan []byte, buffer),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the broadcaster's main loop. It returns when ctx is cancelled,
// closing every client's send channel.
func (b *ProjectBroadcaster) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.HTTP().Debug("Project client registered", "clientId", client.ID, "clients", count)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.HTTP().Debug("Project client unregistered", "clientId", client.ID, "clients", count)

		case message := <-b.broadcast:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client.Send <- message:
				default:
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Register queues a client for registration. It returns false once the
// broadcaster has stopped.
func (b *ProjectBroadcaster) Register(client *ProjectClient) bool {
	select {
	case b.register <- client:
		return true
	case <-b.done:
		return false
	}
}

// Unregister queues a client for unregistration.
func (b *ProjectBroadcaster) Unregister(client *ProjectClient) {
	select {
	case b.unregister <- client:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *ProjectBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish queues a revision message. It never blocks; when the queue is
// full the message is dropped, and clients catch up on the next revision.
func (b *ProjectBroadcaster) Publish(change document.Change) {
	message, err := json.Marshal(RevisionMessage{Type: "revision", Revision: change.Revision, Command: change.Command})
	if err != nil {
		b.logger.HTTP().Error("Failed to marshal revision message", "error", err)
		return
	}
	select {
	case b.broadcast <- message:
	default:
		b.logger.HTTP().Warn("Revision broadcast queue full, message dropped", "revision", change.Revision)
	}
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn) *ProjectClient {
	return &ProjectClient{
		ID:   security.GenerateULID(),
		Conn: conn,
		Send: make(chan []byte, 16),
	}
}

// Serve registers the client and pumps messages until the connection closes.
// The first message sent is the current revision.
func (b *ProjectBroadcaster) Serve(client *ProjectClient, current document.Change) {
	if !b.admit(client, current) {
		client.Conn.Close()
		return
	}

	go b.writePump(client)
	b.readPump(client)
}

// admit queues the current revision on the client and then registers it.
// Once registered, Send belongs to Run and may be closed at any time.
func (b *ProjectBroadcaster) admit(client *ProjectClient, current document.Change) bool {
	if hello, err := json.Marshal(RevisionMessage{Type: "revision", Revision: current.Revision, Command: current.Command}); err == nil {
		select {
		case client.Send <- hello:
		default:
		}
	}
	return b.Register(client)
}

// readPump discards incoming messages and detects closed connections.
func (b *ProjectBroadcaster) readPump(client *ProjectClient) {
	defer func() {
		b.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.HTTP().Warn("Project client closed unexpectedly", "clientId", client.ID, "error", err)
			}
			return
		}
	}
}

func (b *ProjectBroadcaster) writePump(client *ProjectClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
