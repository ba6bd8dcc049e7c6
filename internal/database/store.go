package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for the append-only conversation log.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateConversation inserts a new conversation record.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetConversation retrieves a conversation by ID, or nil if absent.
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)

	// AppendMessage appends one message to a conversation log.
	AppendMessage(ctx context.Context, message *Message) error

	// GetConversationMessages retrieves a conversation's messages in
	// chronological order, capped at limit.
	GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConversation inserts a new conversation record.
func (s *sqlxStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("cannot create nil conversation")
	}
	if conv.ID == "" {
		return fmt.Errorf("conversation must have a non-empty id")
	}
	if conv.UserID == "" {
		return fmt.Errorf("conversation must have a non-empty user_id")
	}

	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	query := `
        INSERT INTO conversations (id, user_id, created_at, updated_at)
        VALUES (:id, :user_id, :created_at, :updated_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, conv); err != nil {
		s.logger.ErrorContext(ctx, "Error creating conversation",
			"conversation_id", conv.ID, "user_id", conv.UserID, "error", err)
		return fmt.Errorf("failed to create conversation %s: %w", conv.ID, err)
	}

	s.logger.DebugContext(ctx, "Conversation created", "conversation_id", conv.ID, "user_id", conv.UserID)
	return nil
}

// GetConversation retrieves a conversation by ID. A missing
// conversation is reported as nil without an error.
func (s *sqlxStore) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation_id cannot be empty")
	}

	var conv Conversation
	query := `
        SELECT id, user_id, created_at, updated_at
        FROM conversations
        WHERE id = ?;
    `
	err := s.db.GetContext(ctx, &conv, query, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting conversation",
			"conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to get conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// AppendMessage appends one message to a conversation log inside a
// transaction that also bumps the conversation's updated_at.
func (s *sqlxStore) AppendMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot append nil message")
	}
	if message.ConversationID == "" {
		return fmt.Errorf("message must have a non-empty conversation_id")
	}
	if message.Role != RoleUser && message.Role != RoleAssistant {
		return fmt.Errorf("message role must be %q or %q, got %q", RoleUser, RoleAssistant, message.Role)
	}
	if message.Content == "" {
		return fmt.Errorf("message must have non-empty content")
	}
	if message.Timestamp.IsZero() {
		return fmt.Errorf("message must have a non-zero timestamp")
	}

	message.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for appending message",
			"conversation_id", message.ConversationID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	query := `
        INSERT INTO messages (conversation_id, role, content, visible, timestamp, created_at)
        VALUES (:conversation_id, :role, :content, :visible, :timestamp, :created_at);
    `
	result, err := tx.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending message",
			"conversation_id", message.ConversationID, "role", message.Role, "error", err)
		return fmt.Errorf("failed to append message to conversation %s: %w", message.ConversationID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		message.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after appending message",
			"conversation_id", message.ConversationID, "error", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		message.CreatedAt, message.ConversationID); err != nil {
		s.logger.ErrorContext(ctx, "Error bumping conversation updated_at",
			"conversation_id", message.ConversationID, "error", err)
		return fmt.Errorf("failed to update conversation %s: %w", message.ConversationID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"conversation_id", message.ConversationID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message appended successfully",
		"conversation_id", message.ConversationID, "role", message.Role, "message_id", message.ID)
	return nil
}

// GetConversationMessages retrieves a conversation's messages in
// chronological order, capped at limit.
func (s *sqlxStore) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation_id cannot be empty")
	}
	if limit <= 0 {
		limit = 50
		s.logger.DebugContext(ctx, "Invalid limit provided, using default",
			"conversation_id", conversationID, "default_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []Message
	query := `
        SELECT id, conversation_id, role, content, visible, timestamp, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY timestamp ASC, id ASC
        LIMIT ?;
    `
	err := s.db.SelectContext(ctx, &messages, query, conversationID, limit)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages",
			"conversation_id", conversationID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting conversation messages",
			"conversation_id", conversationID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get messages for conversation %s: %w", conversationID, err)
	}

	s.logger.DebugContext(ctx, "Fetched conversation messages successfully",
		"conversation_id", conversationID, "count", len(messages))
	return messages, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
