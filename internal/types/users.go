package types

// User is an authenticated operator of the core API.
type User struct {
	ID                      string `json:"id"`
	Username                string `json:"username"`
	PasswordHash            string `json:"password_hash,omitempty"`
	Admin                   bool   `json:"admin"`
	Enabled                 bool   `json:"enabled"`
	CreateServerPermissions bool   `json:"create_server_permissions"`
	CreatedAt               int64  `json:"created_at"`
	UpdatedAt               int64  `json:"updated_at"`
}

// Sanitized returns a copy safe to hand back to API callers.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// ApiKey authenticates non-interactive callers. Only the SHA-256 hash of
// the secret is stored; the plaintext is shown once at creation.
type ApiKey struct {
	Key        string `json:"key"`
	SecretHash string `json:"secret_hash,omitempty"`
	Name       string `json:"name"`
	UserID     string `json:"user_id"`
	CreatedAt  int64  `json:"created_at"`
}
