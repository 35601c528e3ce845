package model

import "time"

// Comment belongs to a template and optionally replies to another comment
// of the same template.  Replies is only populated by thread assembly.
type Comment struct {
    ID         uint64     `json:"id"`
    TemplateID uint64     `json:"template_id"`
    AuthorID   uint64     `json:"author_id"`
    AuthorName string     `json:"author_name,omitempty"`
    ParentID   *uint64    `json:"parent_id,omitempty"`
    Content    string     `json:"content"`
    CreatedAt  time.Time  `json:"created_at"`
    UpdatedAt  time.Time  `json:"updated_at"`
    Replies    []*Comment `json:"replies"`
}
