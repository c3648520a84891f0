package api

import "time"

// SessionAuthResponse is returned when a new practice session is opened.
type SessionAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// VoicesResponse lists the voices available for character assignment.
type VoicesResponse struct {
	Voices       []string `json:"voices"`
	DefaultVoice string   `json:"default_voice"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
