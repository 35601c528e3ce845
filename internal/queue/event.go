// Package queue defines message payloads exchanged over the message broker
// and the consumer that processes them.
package queue

import (
	"encoding/json"
	"time"
)

// EmailQueueName is the durable queue carrying email requests.
const EmailQueueName = "notifications.email"

// EmailRequested asks the email worker to render and deliver one
// transactional email.  Data holds the kind specific template values.
type EmailRequested struct {
	Kind        string          `json:"kind"`
	To          string          `json:"to"`
	UserID      uint64          `json:"user_id"`
	Data        json.RawMessage `json:"data"`
	RequestedAt time.Time       `json:"requested_at"`
}

// NewEmailRequested marshals data into a request stamped with the current
// time.
func NewEmailRequested(kind, to string, userID uint64, data any) (EmailRequested, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return EmailRequested{}, err
	}
	return EmailRequested{Kind: kind, To: to, UserID: userID, Data: raw, RequestedAt: time.Now().UTC()}, nil
}
