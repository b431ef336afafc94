// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced on the HTTP routes; progress streams carry no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketConnection is the subset of *websocket.Conn the clients use.
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// WebSocketClient is one connection following one job.
type WebSocketClient struct {
	conn      WebSocketConnection
	jobID     string
	send      chan []byte
	done      chan struct{}
	closed    int32
	lastPing  atomic.Int64 // unix nanos
	createdAt time.Time
}

func newWebSocketClient(conn WebSocketConnection, jobID string) *WebSocketClient {
	client := &WebSocketClient{
		conn:      conn,
		jobID:     jobID,
		send:      make(chan []byte, 64),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close signals the pumps to stop. The write pump owns the connection and
// closes it after flushing queued messages.
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
	}
}

func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, client.lastPing.Load())
}

// IsExpired reports whether nothing was heard from the peer within timeout.
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(client.LastPing()) > timeout
}

// SendMessage queues v as JSON. A full queue drops the message.
func (client *WebSocketClient) SendMessage(v interface{}) bool {
	if client.IsClosed() {
		return false
	}
	msg, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// WebSocketManager tracks open connections per job.
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]bool
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	stop        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	logger      *utils.Logger
}

func NewWebSocketManager(logger *utils.Logger) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]bool),
		register:    make(chan *WebSocketClient, 256),
		unregister:  make(chan *WebSocketClient, 256),
		stop:        make(chan struct{}),
		pingTimeout: 2 * time.Minute,
		logger:      logger,
	}
}

// run serialises registration and periodically drops dead connections.
func (manager *WebSocketManager) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)
		case client := <-manager.unregister:
			manager.unregisterClient(client)
		case <-ticker.C:
			manager.cleanupExpiredConnections()
		case <-manager.stop:
			manager.closeAll()
			return
		}
	}
}

func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.jobID] == nil {
		manager.connections[client.jobID] = make(map[*WebSocketClient]bool)
	}
	manager.connections[client.jobID][client] = true
	manager.logger.Debug("websocket client connected", map[string]interface{}{"job_id": client.jobID})
}

func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if clients, ok := manager.connections[client.jobID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.jobID)
		}
	}
	client.Close()
}

// cleanupExpiredConnections drops closed and silent clients and returns how many.
func (manager *WebSocketManager) cleanupExpiredConnections() int {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	removed := 0
	for jobID, clients := range manager.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(clients, client)
				client.Close()
				removed++
			}
		}
		if len(clients) == 0 {
			delete(manager.connections, jobID)
		}
	}
	return removed
}

func (manager *WebSocketManager) closeAll() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]bool)
}

// Shutdown closes every connection and stops the manager loop.
func (manager *WebSocketManager) Shutdown() {
	manager.stopOnce.Do(func() { close(manager.stop) })
}

// BroadcastToJob sends message to every client following jobID.
func (manager *WebSocketManager) BroadcastToJob(jobID string, message interface{}) int {
	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[jobID]))
	for client := range manager.connections[jobID] {
		clients = append(clients, client)
	}
	manager.mutex.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.SendMessage(message) {
			sent++
		}
	}
	return sent
}

// GetStatus summarises open connections per job.
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	jobs := make(map[string]interface{})
	total := 0
	for jobID, clients := range manager.connections {
		active := 0
		for client := range clients {
			if !client.IsClosed() {
				active++
			}
		}
		jobs[jobID] = map[string]interface{}{"client_count": active}
		total += active
	}

	return map[string]interface{}{
		"total_jobs":           len(manager.connections),
		"total_connections":    total,
		"jobs":                 jobs,
		"ping_timeout_seconds": int(manager.pingTimeout.Seconds()),
	}
}
