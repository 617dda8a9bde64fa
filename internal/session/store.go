// Package session persists the signed-in user's identity and the backend chat id on the client.
package session

import "context"

// Persisted key names. They are part of the client contract and must not change.
const (
	KeyUserID = "userId"
	KeyEmail  = "email"
	KeyChatID = "chatId"
)

// Session is the persisted triple. Empty strings mean the key was never written.
type Session struct {
	UserID string
	Email  string
	ChatID string
}

// SignedIn reports whether a user identity is stored.
func (s Session) SignedIn() bool {
	return s.UserID != ""
}

// Store reads and writes the client session.
type Store interface {
	// Save writes the user id and email together, overwriting prior values.
	Save(ctx context.Context, userID, email string) error
	// Read returns the stored values.
	Read(ctx context.Context) (Session, error)
	// RecordChatID stores the backend-assigned chat id. Empty ids are ignored.
	RecordChatID(ctx context.Context, chatID string) error
	// ForgetChatID removes only the chat id.
	ForgetChatID(ctx context.Context) error
	// Clear removes all keys.
	Clear(ctx context.Context) error
}
