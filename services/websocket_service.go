package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"wallet/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 16
)

// PaymentEvent сообщение, которое получает клиент по WebSocket
type PaymentEvent struct {
	Event       string             `json:"event"`
	Message     string             `json:"message"`
	Card        models.Card        `json:"card"`
	Transaction models.Transaction `json:"transaction"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketService рассылает события о платежах подключенным клиентам пользователя
type WebSocketService struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*wsClient]struct{}
	upgrader websocket.Upgrader
}

// NewWebSocketService создает новый экземпляр WebSocketService
func NewWebSocketService() *WebSocketService {
	return &WebSocketService{
		clients: make(map[uuid.UUID]map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve переводит соединение в WebSocket и держит его до отключения клиента
func (s *WebSocketService) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	s.register(userID, client)
	log.Debug().Str("user_id", userID.String()).Msg("websocket connected")

	go s.writeLoop(client)
	s.readLoop(userID, client)
	return nil
}

func (s *WebSocketService) register(userID uuid.UUID, c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[userID] == nil {
		s.clients[userID] = make(map[*wsClient]struct{})
	}
	s.clients[userID][c] = struct{}{}
}

func (s *WebSocketService) unregister(userID uuid.UUID, c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.clients[userID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(s.clients, userID)
	}
}

// readLoop читает входящие сообщения только ради pong и обнаружения закрытия
func (s *WebSocketService) readLoop(userID uuid.UUID, c *wsClient) {
	defer func() {
		s.unregister(userID, c)
		c.conn.Close()
		log.Debug().Str("user_id", userID.String()).Msg("websocket disconnected")
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WebSocketService) writeLoop(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Notify отправляет событие о платеже всем соединениям владельца карты.
// Медленные клиенты с заполненным буфером пропускают событие.
func (s *WebSocketService) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(PaymentEvent{
		Event:       "payment",
		Message:     n.Text(),
		Card:        n.Card,
		Transaction: n.Transaction,
	})
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients[n.Card.UserID] {
		select {
		case c.send <- payload:
		default:
			log.Warn().Str("user_id", n.Card.UserID.String()).Msg("websocket buffer full, event dropped")
		}
	}
	return nil
}

// Connections возвращает число открытых соединений пользователя
func (s *WebSocketService) Connections(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}
