package api

import "time"

// API Request/Response Types

// LoginResponse carries a freshly minted token.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"` // Always "Bearer"
	ExpiresIn int64  `json:"expires_in"` // Seconds until expiry
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// ModelsResponse lists every model with a committed routing.
type ModelsResponse struct {
	Models []string `json:"models"`
	Count  int      `json:"count"`
}

// OrderResponse carries an execution order over a model's areas.
type OrderResponse struct {
	ModelID string   `json:"modelId"`
	Order   []string `json:"order"`
}

// BatchesResponse carries the order grouped into parallel stages.
type BatchesResponse struct {
	ModelID string     `json:"modelId"`
	Batches [][]string `json:"batches"`
}

// ExistsResponse reports whether a model has a routing.
type ExistsResponse struct {
	ModelID string `json:"modelId"`
	Exists  bool   `json:"exists"`
}

// HealthResponse reports service liveness and backend info.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
	Models    int       `json:"models"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
