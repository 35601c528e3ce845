package model

import "time"

// Notification kinds.
const (
    NotificationCommentReply = "comment_reply"
    NotificationSale         = "sale"
    NotificationCertificate  = "certificate"
    NotificationTemplate     = "template_status"
)

// Notification is an in-app message for one user.
type Notification struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    Kind      string    `json:"kind"`
    Title     string    `json:"title"`
    Body      string    `json:"body"`
    IsRead    bool      `json:"is_read"`
    CreatedAt time.Time `json:"created_at"`
}

func (n Notification) RecordID() uint64 { return n.ID }
