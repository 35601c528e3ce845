// Package realtime fans database change events out to WebSocket clients and
// keeps in-memory lists current by applying those events.
package realtime

import (
	"encoding/json"
	"strconv"
	"strings"
)

type EventType string

const (
	Insert   EventType = "INSERT"
	Update   EventType = "UPDATE"
	Delete   EventType = "DELETE"
	Presence EventType = "PRESENCE"
)

// Well-known topics.  Per-user notification topics are built with UserTopic.
const (
	TopicTemplates   = "templates"
	TopicEvaluations = "evaluations"
	TopicPresence    = "presence"

	userTopicPrefix = "notifications:"
)

// Event is one change delivered to subscribers of Topic.  Record carries
// the new row for INSERT and UPDATE and is empty for DELETE.
type Event struct {
	Topic  string          `json:"topic"`
	Type   EventType       `json:"type"`
	ID     uint64          `json:"id,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
}

// NewEvent marshals record into an event.  A nil record yields an event
// without payload.
func NewEvent(topic string, typ EventType, id uint64, record any) (Event, error) {
	e := Event{Topic: topic, Type: typ, ID: id}
	if record != nil {
		b, err := json.Marshal(record)
		if err != nil {
			return Event{}, err
		}
		e.Record = b
	}
	return e, nil
}

// UserTopic is the private topic of one user's notifications.
func UserTopic(userID uint64) string {
	return userTopicPrefix + strconv.FormatUint(userID, 10)
}

// topicOwner reports the user a private topic belongs to.
func topicOwner(topic string) (uint64, bool) {
	rest, ok := strings.CutPrefix(topic, userTopicPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseTopics splits a comma separated topic list, dropping blanks and
// duplicates.
func ParseTopics(raw string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// PresenceRecord is the payload of PRESENCE events.
type PresenceRecord struct {
	UserID uint64 `json:"user_id"`
	State  string `json:"state"`
}
