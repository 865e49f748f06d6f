package restserver

import "time"

// ErrorResponse is returned with every non-2xx API status
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClearResponse acknowledges a clear action
type ClearResponse struct {
	Cleared []string  `json:"cleared"`
	At      time.Time `json:"at"`
}

// RegisterResponse describes a completed dataset registration
type RegisterResponse struct {
	Table      string  `json:"table"`
	Files      int     `json:"files"`
	DurationMS float64 `json:"duration_ms"`
}

// SurfaceInfo describes one surface on the index page and in /api/surfaces
type SurfaceInfo struct {
	ID        string    `json:"id"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Drawn     bool      `json:"drawn"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
