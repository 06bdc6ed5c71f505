package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"powermon-go/bus"
	"powermon-go/types"
)

// Frame is one websocket message. Exactly one of Value, Info or Status is
// set, matching Kind.
type Frame struct {
	Kind   string             `json:"kind"` // value | info | status
	Index  int                `json:"index"`
	Value  *types.PowerValue  `json:"value,omitempty"`
	Info   *types.MonitorInfo `json:"info,omitempty"`
	Status *types.StatusEvent `json:"status,omitempty"`
}

// Client receives broadcast items on C until closed.
type Client[T any] struct {
	streamer *Streamer[T]
	input    chan<- *T
	C        <-chan *T
}

func (c *Client[T]) Close() {
	for {
		select {
		case _, ok := <-c.C:
			if !ok {
				return
			}
		case c.streamer.remove <- c:
			return
		}
	}
}

// Streamer fans broadcast items out to a dynamic set of clients. A client
// that cannot keep up loses items rather than stalling the broadcaster.
type Streamer[T any] struct {
	mu        sync.Mutex
	isRunning bool
	clients   map[*Client[T]]bool
	add       chan *Client[T]
	remove    chan *Client[T]
	broadcast chan *T
	stop      chan bool
}

func NewStreamer[T any](buffSize int) *Streamer[T] {
	return &Streamer[T]{
		clients:   make(map[*Client[T]]bool),
		add:       make(chan *Client[T]),
		remove:    make(chan *Client[T]),
		broadcast: make(chan *T, buffSize),
		stop:      make(chan bool),
	}
}

func (m *Streamer[T]) NewClient(buffSize int) *Client[T] {
	ch := make(chan *T, buffSize)
	c := &Client[T]{
		streamer: m,
		input:    ch,
		C:        ch,
	}
	c.streamer.add <- c
	return c
}

func (m *Streamer[T]) Broadcast(data *T) bool {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return false
	}
	select {
	case m.broadcast <- data:
	default:
	}
	m.mu.Unlock()
	return true
}

func (m *Streamer[T]) Run() {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.mu.Unlock()
	for {
		select {
		case <-m.stop:
			for client := range m.clients {
				close(client.input)
			}
			clear(m.clients)
			return
		case client := <-m.add:
			m.clients[client] = true
		case client := <-m.remove:
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.input)
			}
		case item := <-m.broadcast:
			for client := range m.clients {
				select {
				case client.input <- item:
				default:
					// slow client loses this item
				}
			}
		}
	}
}

func (m *Streamer[T]) Stop() bool {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return false
	}
	m.isRunning = false
	m.stop <- true
	m.mu.Unlock()
	return true
}

const wsWriteTimeout = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS streams telemetry frames to one websocket client and feeds any
// messages it sends back into the control topic.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("telemetry: websocket upgrade error: ", err)
		return
	}
	log.Print("telemetry: websocket connection established with ", r.RemoteAddr)
	defer conn.Close()

	client := s.stream.NewClient(cap(s.stream.broadcast))
	defer client.Close()

	go func() {
		for frame := range client.C {
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Print("telemetry: websocket closed: ", err)
			return
		}
		s.conn.Publish(&bus.Message{Topic: topicCtrl, Payload: message})
	}
}
