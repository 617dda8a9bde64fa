package domain

// Turn is a single persisted query/answer exchange.
type Turn struct {
	PK        string
	SK        string
	ChatID    string
	Query     string
	Answer    string
	Followups []string
	Status    string
	TTL       int64
}

// ConversationMeta stores aggregate conversation state. OwnerID is the user that opened the chat;
// other users cannot continue it.
type ConversationMeta struct {
	PK           string
	SK           string
	ChatID       string
	OwnerID      string
	LastActivity string
	Turns        int
	TTL          int64
}
