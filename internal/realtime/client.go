package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be shorter than pongWait
	maxMessageSize = 4 * 1024
	sendBuffer     = 256
)

// Client is one WebSocket connection.  Topics is fixed at connect time and
// only read by the hub goroutine afterwards.
type Client struct {
	ID     string
	UserID uint64

	hub    *Hub
	conn   *websocket.Conn
	topics map[string]struct{}
	send   chan []byte
}

// NewClient subscribes the connection to topics.  The user's own
// notification topic is always included; other users' private topics are
// ignored.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint64, topics []string) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		topics: map[string]struct{}{UserTopic(userID): {}},
		send:   make(chan []byte, sendBuffer),
	}
	for _, t := range topics {
		if owner, private := topicOwner(t); private && owner != userID {
			continue
		}
		c.topics[t] = struct{}{}
	}
	return c
}

func (c *Client) subscribed(topic string) bool {
	_, ok := c.topics[topic]
	return ok
}

// ReadPump discards inbound frames and keeps the read deadline fresh.  It
// unregisters the client when the connection ends.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithFields(logrus.Fields{"client": c.ID, "user_id": c.UserID}).
					Warn("websocket read")
			}
			return
		}
	}
}

// WritePump sends queued events, one JSON document per frame, and pings
// the peer periodically.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
