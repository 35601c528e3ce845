package model

import "time"

// TutorialProgress is the authoritative progress of one user through one
// tutorial.  Browser copies are caches that sync against it.
type TutorialProgress struct {
    TutorialID     string     `json:"tutorial_id"`
    CompletedSteps uint32     `json:"completed_steps"`
    TotalSteps     uint32     `json:"total_steps"`
    CompletedAt    *time.Time `json:"completed_at,omitempty"`
    UpdatedAt      time.Time  `json:"updated_at"`
}

// Done reports whether every step has been completed.
func (p TutorialProgress) Done() bool {
    return p.TotalSteps > 0 && p.CompletedSteps >= p.TotalSteps
}

// Completed reports whether the tutorial was ever finished.  It stays true
// when a later sync raises total_steps.
func (p TutorialProgress) Completed() bool {
    return p.CompletedAt != nil || p.Done()
}

type Certificate struct {
    ID         uint64    `json:"id"`
    UserID     uint64    `json:"user_id"`
    TutorialID string    `json:"tutorial_id"`
    Code       string    `json:"certificate_code"`
    IssuedAt   time.Time `json:"issued_at"`
}

type Badge struct {
    Badge     string    `json:"badge"`
    AwardedAt time.Time `json:"awarded_at"`
}
