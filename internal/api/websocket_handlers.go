// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/services"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

const (
	writeWait    = 10 * time.Second
	readWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

// WebSocketHandler streams job progress to websocket clients.
type WebSocketHandler struct {
	progress *services.ProgressService
	manager  *WebSocketManager
	logger   *utils.Logger
}

// NewWebSocketHandler starts its connection manager.
func NewWebSocketHandler(progress *services.ProgressService, logger *utils.Logger) *WebSocketHandler {
	manager := NewWebSocketManager(logger)
	go manager.run()
	return &WebSocketHandler{progress: progress, manager: manager, logger: logger}
}

func (wh *WebSocketHandler) Manager() *WebSocketManager {
	return wh.manager
}

// JobWebSocket sends a "progress" message for every tracker update and closes
// the connection once the job completes or fails.
func (wh *WebSocketHandler) JobWebSocket(c *gin.Context) {
	jobID := c.Param("job_id")
	tracker, exists := wh.progress.GetTracker(jobID)
	if !exists {
		NewResponseHelper().NotFound(c, "job")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Warn("websocket upgrade failed", map[string]interface{}{"job_id": jobID, "error": err.Error()})
		return
	}

	client := newWebSocketClient(conn, jobID)
	wh.manager.register <- client
	defer func() {
		select {
		case wh.manager.unregister <- client:
		case <-time.After(time.Second):
			client.Close()
		}
	}()

	go wh.handleWebSocketWrites(client)
	go wh.handleWebSocketReads(client)

	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	for {
		select {
		case <-client.done:
			return
		case update, ok := <-updates:
			if !ok {
				client.Close()
				return
			}
			client.SendMessage(progressMessage(update))
			if update.Status.Terminal() {
				client.Close()
				return
			}
		case <-tracker.Done:
			client.SendMessage(progressMessage(tracker.Snapshot()))
			client.Close()
			return
		}
	}
}

func progressMessage(update services.ProgressUpdate) map[string]interface{} {
	return map[string]interface{}{
		"type":     "progress",
		"job_id":   update.JobID,
		"status":   update.Status,
		"step":     update.Step,
		"progress": update.Progress,
		"error":    update.Error,
	}
}

// handleWebSocketReads keeps the read deadline fresh and answers pings.
// Any read error ends the connection.
func (wh *WebSocketHandler) handleWebSocketReads(client *WebSocketClient) {
	defer client.Close()

	client.conn.SetReadDeadline(time.Now().Add(readWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !client.IsClosed() {
				wh.logger.Debug("websocket read error", map[string]interface{}{"job_id": client.jobID, "error": err.Error()})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(readWait))

		var message map[string]interface{}
		if err := json.Unmarshal(data, &message); err != nil {
			continue
		}
		if message["type"] == "ping" {
			client.SendMessage(map[string]interface{}{"type": "pong", "timestamp": time.Now().Unix()})
		}
	}
}

// handleWebSocketWrites owns the connection: it writes queued messages, pings
// periodically, and on close flushes the queue before closing the socket.
func (wh *WebSocketHandler) handleWebSocketWrites(client *WebSocketClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
		client.conn.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			for {
				select {
				case message := <-client.send:
					client.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					client.conn.SetWriteDeadline(time.Now().Add(writeWait))
					client.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
					return
				}
			}
		}
	}
}
