package model

import "time"

// Skill is one catalog entry offered or sought on the platform.
type Skill struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one chat message.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
