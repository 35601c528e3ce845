package model

import "time"

// PromptConfig is a saved prompt-engineering configuration.
type PromptConfig struct {
    ID           uint64    `json:"id"`
    UserID       uint64    `json:"user_id"`
    Name         string    `json:"name"`
    Model        string    `json:"model"`
    SystemPrompt string    `json:"system_prompt"`
    UserPrompt   string    `json:"user_prompt"`
    Temperature  float64   `json:"temperature"`
    MaxTokens    uint32    `json:"max_tokens"`
    IsFavorite   bool      `json:"is_favorite"`
    Rating       *uint8    `json:"rating,omitempty"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}
