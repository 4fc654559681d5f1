package logging

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// LogEntry represents a single log entry to be sent to the client.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Client is one connected log stream.
type Client struct {
	id      string
	Channel chan []byte
	filters AppliedFilters
}

// ID returns the client's connection id.
func (c *Client) ID() string { return c.id }

// AppliedFilters defines the filtering criteria for a client.
type AppliedFilters struct {
	Channel Channel // "all" matches every channel
	Level   slog.Level
}

// Matches reports whether an entry passes the filters.
func (f AppliedFilters) Matches(entry LogEntry) bool {
	if f.Channel != "all" && f.Channel != Channel(entry.Channel) {
		return false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(entry.Level)); err != nil {
		return true
	}
	return level >= f.Level
}

// LogBroadcaster manages clients and broadcasts log messages.
type LogBroadcaster struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan LogEntry
	mu         sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
	dropped    uint64
}

// NewLogBroadcaster starts a broadcaster whose queue holds bufferSize entries.
func NewLogBroadcaster(bufferSize int) *LogBroadcaster {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	b := &LogBroadcaster{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan LogEntry, bufferSize),
		stop:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *LogBroadcaster) run() {
	for {
		select {
		case <-b.stop:
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Channel)
			}
			b.mu.Unlock()
			return
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Channel)
			}
			b.mu.Unlock()
		case entry := <-b.broadcast:
			b.distribute(entry)
		}
	}
}

// distribute sends a log entry to all clients whose filters match.
func (b *LogBroadcaster) distribute(entry LogEntry) {
	message, err := json.Marshal(entry)
	if err != nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		if !client.filters.Matches(entry) {
			continue
		}
		select {
		case client.Channel <- message:
		default:
			// slow client, drop
		}
	}
}

// SubmitLog queues an entry without blocking. Entries are dropped when the
// queue is full.
func (b *LogBroadcaster) SubmitLog(entry LogEntry) {
	select {
	case b.broadcast <- entry:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (b *LogBroadcaster) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// NewClient creates a new client for the broadcaster.
func (b *LogBroadcaster) NewClient(filters AppliedFilters) *Client {
	return &Client{
		id:      ulid.Make().String(),
		Channel: make(chan []byte, 100),
		filters: filters,
	}
}

// RegisterClient adds a client. It returns false once the broadcaster has
// been shut down.
func (b *LogBroadcaster) RegisterClient(client *Client) bool {
	select {
	case b.register <- client:
		return true
	case <-b.stop:
		return false
	}
}

// UnregisterClient removes a client and closes its channel.
func (b *LogBroadcaster) UnregisterClient(client *Client) {
	select {
	case b.unregister <- client:
	case <-b.stop:
	}
}

// Shutdown stops the broadcaster and closes every client channel.
func (b *LogBroadcaster) Shutdown() {
	b.stopOnce.Do(func() { close(b.stop) })
}
