package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"flowquant/flow"
	"flowquant/market"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Snapshot 推送给看板的数据快照
type Snapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Ranking   []market.RankEntry         `json:"ranking"`
	Industry  []market.IndustryRankEntry `json:"industry"`
	Trend     []market.TrendPoint        `json:"trend"`
}

// Client WebSocket客户端连接
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub WebSocket连接中心，周期性向所有客户端广播看板快照
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	upgrader   websocket.Upgrader

	ranker   *flow.Ranker
	trend    *flow.TrendGenerator
	interval time.Duration
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub 创建连接中心，interval 为快照广播周期
func NewHub(ranker *flow.Ranker, trend *flow.TrendGenerator, interval time.Duration, logger *zap.Logger) *Hub {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ranker:   ranker,
		trend:    trend,
		interval: interval,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 运行连接管理和快照广播循环，阻塞直到 Stop
func (h *Hub) Start() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("ws client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("ws client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.broadcastSnapshot()

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止广播并断开所有客户端
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastSnapshot 没有客户端时跳过计算
func (h *Hub) broadcastSnapshot() {
	h.mu.Lock()
	count := len(h.clients)
	h.mu.Unlock()
	if count == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	snapshot := Snapshot{Timestamp: time.Now()}
	if entries, err := h.ranker.RankStocks(ctx, flow.WindowDaily, flow.OrderDesc, 10); err == nil {
		snapshot.Ranking = entries
	} else {
		h.log.Warn("snapshot ranking failed", zap.Error(err))
	}
	if entries, err := h.ranker.RankIndustries(ctx, flow.OrderDesc, 10); err == nil {
		snapshot.Industry = entries
	} else {
		h.log.Warn("snapshot industry ranking failed", zap.Error(err))
	}
	if points, err := h.trend.Trend(ctx, 7); err == nil {
		snapshot.Trend = points
	} else {
		h.log.Warn("snapshot trend failed", zap.Error(err))
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		h.log.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// HandleWebSocket 升级连接并进入读写循环
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws upgrade failed", zap.Error(err))
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

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
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
