package database

import (
	"time"
)

// Message roles accepted by the log. The log stores only user and
// assistant messages; system instructions and calibration text never
// reach storage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation represents one chat session owned by a single user.
type Conversation struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Message is one appended entry of a conversation log. Timestamp is the
// moment the message was exchanged (UTC); Visible controls whether the
// front-end shows it (seed messages are recorded but hidden).
type Message struct {
	ID             uint      `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Role           string    `db:"role"`
	Content        string    `db:"content"`
	Visible        bool      `db:"visible"`
	Timestamp      time.Time `db:"timestamp"`
	CreatedAt      time.Time `db:"created_at"`
}

// Snippet is a unit of reference material served by the retrieval
// provider, loaded from the documents directory at startup.
type Snippet struct {
	ID        uint      `db:"id"`
	Source    string    `db:"source"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
