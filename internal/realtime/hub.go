package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/metrics"
)

// Listener receives events in process.  Listeners run on the hub goroutine
// and must not block.
type Listener func(Event)

// Hub owns every client and subscription.  All state below the channels is
// touched only by the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	presence   chan chan []uint64
	done       chan struct{}

	clients map[*Client]struct{}
	online  map[uint64]int

	mu        sync.RWMutex
	listeners map[string][]Listener
	relay     func(Event)

	log logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		presence:   make(chan chan []uint64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		online:     make(map[uint64]int),
		listeners:  make(map[string][]Listener),
		log:        log.WithField("component", "realtime"),
	}
}

// Listen registers an in-process listener for topic.
func (h *Hub) Listen(topic string, fn Listener) {
	h.mu.Lock()
	h.listeners[topic] = append(h.listeners[topic], fn)
	h.mu.Unlock()
}

// SetRelay installs a hook that forwards locally published events to other
// instances.
func (h *Hub) SetRelay(fn func(Event)) {
	h.mu.Lock()
	h.relay = fn
	h.mu.Unlock()
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.RealtimeConnected()
			h.online[c.UserID]++
			if h.online[c.UserID] == 1 {
				h.dispatch(h.presenceEvent(c.UserID, "join"))
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case e := <-h.broadcast:
			h.dispatch(e)

		case reply := <-h.presence:
			ids := make([]uint64, 0, len(h.online))
			for id := range h.online {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			reply <- ids
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	metrics.RealtimeDisconnected()
	h.online[c.UserID]--
	if h.online[c.UserID] <= 0 {
		delete(h.online, c.UserID)
		h.dispatch(h.presenceEvent(c.UserID, "leave"))
	}
}

func (h *Hub) presenceEvent(userID uint64, state string) Event {
	e, _ := NewEvent(TopicPresence, Presence, userID, PresenceRecord{UserID: userID, State: state})
	return e
}

// dispatch runs on the hub goroutine.  Private topics reach only their
// owner, and a client that cannot keep up is disconnected.
func (h *Hub) dispatch(e Event) {
	h.mu.RLock()
	listeners := h.listeners[e.Topic]
	h.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}

	owner, private := topicOwner(e.Topic)
	var msg []byte
	for c := range h.clients {
		if !c.subscribed(e.Topic) || (private && c.UserID != owner) {
			continue
		}
		if msg == nil {
			b, err := json.Marshal(e)
			if err != nil {
				h.log.WithError(err).WithField("topic", e.Topic).Error("encode event")
				return
			}
			msg = b
		}
		select {
		case c.send <- msg:
		default:
			h.log.WithFields(logrus.Fields{"client": c.ID, "user_id": c.UserID}).Warn("slow realtime client dropped")
			h.drop(c)
		}
	}
}

// Register hands a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish delivers e to local subscribers and relays it to other instances.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		relay(e)
	}
	h.Deliver(e)
}

// Deliver hands e to local subscribers only.
func (h *Hub) Deliver(e Event) {
	select {
	case h.broadcast <- e:
	case <-h.done:
	}
}

// Emit builds and publishes an event, logging encoding failures.
func (h *Hub) Emit(topic string, typ EventType, id uint64, record any) {
	e, err := NewEvent(topic, typ, id, record)
	if err != nil {
		h.log.WithError(err).WithField("topic", topic).Error("build event")
		return
	}
	h.Publish(e)
}

// Online returns the ids of users with at least one open connection on
// this instance, ascending.
func (h *Hub) Online(ctx context.Context) ([]uint64, error) {
	reply := make(chan []uint64, 1)
	select {
	case h.presence <- reply:
	case <-h.done:
		return []uint64{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case ids := <-reply:
		return ids, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
