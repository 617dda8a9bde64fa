package domain

// User is the server-side profile created by the first sign-in handshake.
type User struct {
	PK        string
	SK        string
	UserID    string
	Email     string
	CreatedAt string
	LastSeen  string
	TTL       int64
}
