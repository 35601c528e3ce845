package model

import "time"

// Role names stored in users.role.  Role gates what a caller may do:
// evaluators (and admins) submit evaluations, admins reach the admin panel.
const (
    RoleUser      = "user"
    RoleEvaluator = "evaluator"
    RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
    return r == RoleUser || r == RoleEvaluator || r == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table.  PasswordHash never leaves the repository layer in
// responses because it carries no json tag.
type User struct {
    ID           uint64    `json:"id"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    Role         string    `json:"role"`
    IsActive     bool      `json:"is_active"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public face of a user (`profiles` table).  The id is the
// auth identity.
type Profile struct {
    UserID              uint64    `json:"id"`
    DisplayName         string    `json:"display_name"`
    Bio                 *string   `json:"bio,omitempty"`
    AvatarURL           *string   `json:"avatar_url,omitempty"`
    OnboardingCompleted bool      `json:"onboarding_completed"`
    ExperienceLevel     *string   `json:"experience_level,omitempty"`
    Interests           []string  `json:"interests"`
    Role                string    `json:"role"`
    CreatedAt           time.Time `json:"created_at"`
    UpdatedAt           time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
    ID        uint64
    UserID    uint64
    TokenHash string
    ExpiresAt time.Time
    RevokedAt *time.Time
    CreatedAt time.Time
}

// EmailPreferences records which transactional emails a user accepts.
type EmailPreferences struct {
    UserID         uint64 `json:"-"`
    Welcome        bool   `json:"welcome"`
    CommentReplies bool   `json:"comment_replies"`
    Certifications bool   `json:"certifications"`
    WeeklyDigest   bool   `json:"weekly_digest"`
}

// DefaultEmailPreferences opts a new user into every email.
func DefaultEmailPreferences(userID uint64) EmailPreferences {
    return EmailPreferences{UserID: userID, Welcome: true, CommentReplies: true, Certifications: true, WeeklyDigest: true}
}
