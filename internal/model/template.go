package model

import "time"

// Template lifecycle states.
const (
    TemplateStatusPending  = "pending"
    TemplateStatusApproved = "approved"
    TemplateStatusRejected = "rejected"
)

// ValidTemplateStatus reports whether s is a known template status.
func ValidTemplateStatus(s string) bool {
    return s == TemplateStatusPending || s == TemplateStatusApproved || s == TemplateStatusRejected
}

// Template is a submitted code/design artifact (`templates` table).  Tags
// are persisted as a comma separated list and exposed as a slice.
type Template struct {
    ID            uint64    `json:"id"`
    SubmitterID   uint64    `json:"submitter_id"`
    Title         string    `json:"title"`
    Description   string    `json:"description"`
    Category      string    `json:"category"`
    Difficulty    string    `json:"difficulty"`
    Tags          []string  `json:"tags"`
    Status        string    `json:"status"`
    PreviewURL    *string   `json:"preview_url,omitempty"`
    DemoURL       *string   `json:"demo_url,omitempty"`
    RepositoryURL *string   `json:"repository_url,omitempty"`
    CreatedAt     time.Time `json:"created_at"`
    UpdatedAt     time.Time `json:"updated_at"`
}

// RecordID satisfies realtime.Identifiable so templates can live in a
// realtime.LiveList.
func (t Template) RecordID() uint64 { return t.ID }

// TemplateFilter narrows template listings.  Zero values mean "no filter".
type TemplateFilter struct {
    Status     string
    Category   string
    Difficulty string
    Tag        string
    Search     string
    Page       int
    PageSize   int
}
