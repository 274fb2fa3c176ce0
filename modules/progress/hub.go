package progress

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"tryon-gateway/modules/jobs"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Client - 연결된 구독자
type Client struct {
	conn  *websocket.Conn
	id    string
	jobID string
	send  chan []byte
}

// Hub - Job 진행 이벤트 브로드캐스트 허브
// Redis jobs:events 채널을 구독해서 job별 WebSocket 구독자에게 전달
type Hub struct {
	rdb     *redis.Client
	clients map[string]map[string]*Client // jobID → clientID → client
	mutex   sync.RWMutex
}

// NewHub - Hub 생성
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rdb:     rdb,
		clients: make(map[string]map[string]*Client),
	}
}

// Start - Redis pub/sub 구독 루프 시작 (블로킹)
func (h *Hub) Start(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, jobs.EventChannel)
	defer pubsub.Close()

	log.Printf("📡 Progress hub subscribed to channel: %s", jobs.EventChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Progress hub stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.dispatch([]byte(msg.Payload))
		}
	}
}

// dispatch - 이벤트를 해당 Job 구독자들에게 전달
func (h *Hub) dispatch(payload []byte) {
	var event jobs.ProgressEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("⚠️ Invalid progress event: %v", err)
		return
	}

	// 느린 구독자는 제거하므로 쓰기 잠금 사용
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribers := h.clients[event.JobID]
	for id, client := range subscribers {
		select {
		case client.send <- payload:
		default:
			close(client.send)
			delete(subscribers, id)
		}
	}
}

// HandleWebSocket - GET /ws?job=<jobID>
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		http.Error(w, "job parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:  conn,
		id:    uuid.New().String(),
		jobID: jobID,
		send:  make(chan []byte, 64),
	}

	h.addClient(client)
	log.Printf("👤 Progress subscriber connected for job %s (connections: %d)", jobID, h.connectionCount())

	go client.writePump()
	go client.readPump(h)
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.jobID] == nil {
		h.clients[client.jobID] = make(map[string]*Client)
	}
	h.clients[client.jobID][client.id] = client
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribers, ok := h.clients[client.jobID]
	if !ok {
		return
	}
	if _, exists := subscribers[client.id]; exists {
		close(client.send)
		delete(subscribers, client.id)
		log.Printf("👋 Progress subscriber left job %s (remaining: %d)", client.jobID, len(subscribers))
	}
	if len(subscribers) == 0 {
		delete(h.clients, client.jobID)
	}
}

func (h *Hub) connectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	total := 0
	for _, subscribers := range h.clients {
		total += len(subscribers)
	}
	return total
}

// readPump - 클라이언트 메시지는 무시, 연결 종료만 감지
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump - 이벤트를 클라이언트로 전송
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
