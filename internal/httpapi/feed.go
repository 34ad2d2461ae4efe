package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/sdk"
)

const (
	feedClientBuffer = 256
	feedWriteTimeout = 5 * time.Second
)

// FeedMessage is one frame sent to websocket clients.
type FeedMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type readPayload struct {
	EPC     string `json:"epc"`
	Antenna int    `json:"antenna"`
	TID     string `json:"tid,omitempty"`
	Reader  string `json:"reader"`
	At      string `json:"at"`
}

type statusPayload struct {
	Message string `json:"message"`
	At      string `json:"at"`
}

type feedClient struct {
	id   string
	conn *websocket.Conn
	send chan FeedMessage
	once sync.Once
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Feed broadcasts read events and status lines to every connected
// websocket client. It is an sdk.Handler, so register it on the reader.
// A client that cannot keep up is disconnected rather than slowing the
// reader down.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (f *Feed) HandleRead(ev sdk.ReadEvent) error {
	f.broadcast(FeedMessage{Type: "read", Payload: readPayload{
		EPC:     ev.Tag.EPC,
		Antenna: ev.Tag.Antenna,
		TID:     ev.Tag.TID,
		Reader:  ev.Reader.String(),
		At:      ev.When.Format(time.RFC3339Nano),
	}})
	return nil
}

// Notify sends a status line, matching manager.Notifier.
func (f *Feed) Notify(text string) {
	f.broadcast(FeedMessage{Type: "status", Payload: statusPayload{
		Message: text,
		At:      time.Now().Format(time.RFC3339Nano),
	}})
}

func (f *Feed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *Feed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.close()
		delete(f.clients, c)
	}
}

func (f *Feed) broadcast(msg FeedMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			log.WithFields(log.Fields{"Method": "broadcast", "Client": c.id}).Warn("websocket client too slow, dropping it")
			c.close()
			delete(f.clients, c)
		}
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{"Method": "ServeHTTP", "Error": err.Error()}).Warn("websocket upgrade failed")
		return
	}

	c := &feedClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan FeedMessage, feedClientBuffer),
	}
	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()
	entry := log.WithFields(log.Fields{"Client": c.id})
	entry.WithField("Clients", f.ClientCount()).Info("websocket client connected")

	go f.writeLoop(c)

	// reads only detect the close; clients have nothing to say
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				entry.WithField("Error", err.Error()).Debug("websocket read failed")
			}
			break
		}
	}

	f.mu.Lock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		c.close()
	}
	f.mu.Unlock()
	entry.Info("websocket client disconnected")
}

func (f *Feed) writeLoop(c *feedClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

var _ sdk.Handler = (*Feed)(nil)
