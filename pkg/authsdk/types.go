package authsdk

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Envelope
// ============================================================================

// Envelope is the body of every Bookly API response. Data is present on
// success, Error optionally carries details on failure.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty" swaggertype:"object"`
	Error   json.RawMessage `json:"error,omitempty" swaggertype:"object"`
}

// ============================================================================
// Auth Requests
// ============================================================================

// SignUpRequest registers a new account.
type SignUpRequest struct {
	// Name is the display name (3-20 chars)
	Name string `json:"name" example:"Example"`

	// Email is the login email (max 40 chars, unique)
	Email string `json:"email" example:"example@mail.ai"`

	// Password is the plaintext password (min 6 chars)
	Password string `json:"password" example:"Example@123"`
}

// SignInRequest authenticates with exactly one of Email or Username.
type SignInRequest struct {
	Email    string `json:"email,omitempty" example:"example@mail.ai"`
	Username string `json:"username,omitempty"`
	Password string `json:"password" example:"Example@123"`
}

// UpdateProfileRequest replaces the editable profile fields. Omitting Bio
// keeps the stored value.
type UpdateProfileRequest struct {
	Name     string  `json:"name" example:"Example"`
	Username string  `json:"username" example:"example_x1y2z3"`
	Gender   string  `json:"gender" enums:"Male,Female,Other" example:"Other"`
	Bio      *string `json:"bio,omitempty"`
}

// ChangePasswordRequest swaps the password after re-checking the old one.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ============================================================================
// Auth Responses
// ============================================================================

// Profile is the public view of a user account.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Gender    string    `json:"gender"`
	Image     string    `json:"image,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Setup     bool      `json:"setup"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenPair holds the issued tokens. Refresh is omitted until the profile
// is set up.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// SessionResponse is returned by sign-in and refresh-token.
type SessionResponse struct {
	User  Profile   `json:"user"`
	Token TokenPair `json:"token"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of the service dependencies.
type HealthChecks struct {
	// Database indicates the identity store status
	Database string `json:"database"`

	// Cache indicates the session cache status
	Cache string `json:"cache"`
}

// HelloResponse is the greeting returned by / and /hello.
type HelloResponse struct {
	Message string `json:"message" example:"Hello, User!"`
}
