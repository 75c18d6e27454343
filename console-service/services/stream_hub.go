package services

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"railzway-console/shared/config"
)

// StreamHub fans instance status snapshots out to websocket clients and
// channel subscribers (SSE), keyed by organization.
type StreamHub struct {
	wsClients   map[int64]map[*websocket.Conn]bool // orgID -> connections
	subscribers map[int64]map[chan []byte]bool     // orgID -> snapshot channels
	lastPayload map[int64]string                   // orgID -> last published snapshot
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	register    chan *wsClient
	unregister  chan *wsClient
	publish     chan *snapshotEvent
}

type wsClient struct {
	OrgID      int64
	Connection *websocket.Conn
}

type snapshotEvent struct {
	OrgID   int64
	Payload []byte
}

// Global hub instance
var hub *StreamHub
var hubOnce sync.Once

// GetStreamHub returns the singleton stream hub
func GetStreamHub() *StreamHub {
	hubOnce.Do(func() {
		hub = &StreamHub{
			wsClients:   make(map[int64]map[*websocket.Conn]bool),
			subscribers: make(map[int64]map[chan []byte]bool),
			lastPayload: make(map[int64]string),
			upgrader: websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool {
					origin := r.Header.Get("Origin")

					allowedOrigins := []string{
						config.GetConfig().FrontendURL,
					}

					for _, allowed := range allowedOrigins {
						if origin == allowed {
							return true
						}
					}

					log.Printf("🚫 WebSocket connection rejected from origin: %s", origin)
					return false
				},
			},
			register:   make(chan *wsClient, 100),
			unregister: make(chan *wsClient, 100),
			publish:    make(chan *snapshotEvent, 1000),
		}
		go hub.run()
	})
	return hub
}

// run handles the hub event loop
func (h *StreamHub) run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.publish:
			h.fanOut(event)
		}
	}
}

func (h *StreamHub) registerClient(client *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.wsClients[client.OrgID] == nil {
		h.wsClients[client.OrgID] = make(map[*websocket.Conn]bool)
	}
	h.wsClients[client.OrgID][client.Connection] = true
	log.Printf("🔌 WebSocket client connected: org %d (Total: %d)", client.OrgID, len(h.wsClients[client.OrgID]))
}

func (h *StreamHub) unregisterClient(client *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conns, exists := h.wsClients[client.OrgID]; exists {
		if _, ok := conns[client.Connection]; ok {
			delete(conns, client.Connection)
			client.Connection.Close()
			if len(conns) == 0 {
				delete(h.wsClients, client.OrgID)
			}
			log.Printf("🔌 WebSocket client disconnected: org %d", client.OrgID)
		}
	}
}

// fanOut delivers a snapshot to every consumer of the org. Duplicate
// snapshots are suppressed so idle instances stay quiet on the wire.
func (h *StreamHub) fanOut(event *snapshotEvent) {
	h.mutex.Lock()
	next := string(event.Payload)
	if h.lastPayload[event.OrgID] == next {
		h.mutex.Unlock()
		return
	}
	h.lastPayload[event.OrgID] = next
	h.mutex.Unlock()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for conn := range h.wsClients[event.OrgID] {
		if err := conn.WriteMessage(websocket.TextMessage, event.Payload); err != nil {
			log.Printf("❌ Failed to send snapshot to org %d client: %v", event.OrgID, err)
			go func(c *websocket.Conn) {
				h.unregister <- &wsClient{OrgID: event.OrgID, Connection: c}
			}(conn)
		}
	}

	for ch := range h.subscribers[event.OrgID] {
		select {
		case ch <- event.Payload:
		default:
			// Slow subscriber keeps only the freshest snapshot.
		}
	}
}

// Publish queues an org snapshot for delivery
func (h *StreamHub) Publish(orgID int64, payload []byte) {
	select {
	case h.publish <- &snapshotEvent{OrgID: orgID, Payload: payload}:
	default:
		log.Printf("⚠️ Publish queue full, dropping snapshot for org %d", orgID)
	}
}

// Subscribe registers a channel that receives the org's snapshots.
// The caller must call Unsubscribe with the same channel when done.
func (h *StreamHub) Subscribe(orgID int64) chan []byte {
	ch := make(chan []byte, 8)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.subscribers[orgID] == nil {
		h.subscribers[orgID] = make(map[chan []byte]bool)
	}
	h.subscribers[orgID][ch] = true
	return ch
}

// Unsubscribe removes a snapshot channel
func (h *StreamHub) Unsubscribe(orgID int64, ch chan []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subs, exists := h.subscribers[orgID]; exists {
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(h.subscribers, orgID)
			}
		}
	}
}

// HandleWebSocketConnection upgrades the request and streams org snapshots
func (h *StreamHub) HandleWebSocketConnection(c *gin.Context, orgID int64) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Failed to upgrade WebSocket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := &wsClient{OrgID: orgID, Connection: conn}
	h.register <- client

	defer func() {
		h.unregister <- client
	}()

	// Drain client messages; only ping is meaningful.
	for {
		var message map[string]interface{}
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket error for org %d: %v", orgID, err)
			}
			break
		}

		if msgType, ok := message["type"].(string); ok && msgType == "ping" {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`)); err != nil {
				break
			}
		}
	}
}

// ConnectionCount returns the number of active websocket connections
func (h *StreamHub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	total := 0
	for _, conns := range h.wsClients {
		total += len(conns)
	}
	return total
}

// ResetLastPayload clears the dedup marker for an org so the next publish
// always goes out, e.g. right after an action changed the instance.
func (h *StreamHub) ResetLastPayload(orgID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.lastPayload, orgID)
}

// String implements fmt.Stringer for debug logging
func (h *StreamHub) String() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return fmt.Sprintf("StreamHub(orgs=%d, ws=%d)", len(h.subscribers), len(h.wsClients))
}
