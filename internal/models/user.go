package models

// Fields that are never returned by the API for users.
var UserSecretFields = []string{"password", "totpSecret", "backupCodes", "refreshToken"}

// Actor is the identity attributed to a request by the authenticating proxy.
type Actor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	// Authenticated is false when neither identity header pair was present.
	Authenticated bool `json:"-"`
}

// CurrentUser is the response of GET /api/user.
type CurrentUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}
