// Package chat orchestrates the conversation pipeline: it owns
// conversation lifecycle, applies calibration changes to session state,
// and assembles each user message into a model request.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgmulei/obi-slv2/internal/calibration"
	"github.com/dgmulei/obi-slv2/internal/database"
	"github.com/dgmulei/obi-slv2/internal/preference"
	"github.com/dgmulei/obi-slv2/internal/profile"
	"github.com/dgmulei/obi-slv2/internal/retrieval"
	"github.com/dgmulei/obi-slv2/internal/session"
	"github.com/dgmulei/obi-slv2/internal/turn"
)

// ErrConversationNotFound indicates an operation referenced a
// conversation ID that was never started.
var ErrConversationNotFound = errors.New("conversation not found")

// Service wires the calibration pipeline to storage, sessions,
// retrieval, and the model boundary.
type Service struct {
	store           database.Store
	sessions        session.Manager
	profiles        profile.Source
	retriever       retrieval.Provider
	assembler       *turn.Assembler
	baseInstruction  string
	snippetLimit     int
	defaultIntensity int
	logger           *slog.Logger

	mu         sync.Mutex
	lastShapes map[string]turn.Shape
}

// NewService creates the chat service.
func NewService(
	store database.Store,
	sessions session.Manager,
	profiles profile.Source,
	retriever retrieval.Provider,
	assembler *turn.Assembler,
	baseInstruction string,
	snippetLimit int,
	defaultIntensity int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:            store,
		sessions:         sessions,
		profiles:         profiles,
		retriever:        retriever,
		assembler:        assembler,
		baseInstruction:  baseInstruction,
		snippetLimit:     snippetLimit,
		defaultIntensity: defaultIntensity,
		logger:           logger.With("component", "chat_service"),
		lastShapes:       make(map[string]turn.Shape),
	}
}

// StartConversation creates a new conversation for userID and returns
// its ID. The configured default intensity is applied immediately, so
// the first message already carries the user's preference calibration.
func (s *Service) StartConversation(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id cannot be empty")
	}

	conv := &database.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return "", err
	}

	if err := s.SetIntensity(ctx, conv.ID, s.defaultIntensity); err != nil {
		return "", fmt.Errorf("failed to apply initial calibration: %w", err)
	}

	s.logger.InfoContext(ctx, "Conversation started",
		"conversation_id", conv.ID, "user_id", userID, "intensity", s.defaultIntensity)
	return conv.ID, nil
}

// SetIntensity recalibrates the conversation at the given application
// intensity using the owning user's stored preferences. The resulting
// instruction replaces the session's current one wholesale. Intensity
// outside [0,100] and preference values outside [1,5] are rejected
// without touching session state.
func (s *Service) SetIntensity(ctx context.Context, conversationID string, intensity int) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}

	var raw preference.RawValues
	if p, ok := s.profiles.Get(conv.UserID); ok {
		raw = p.Preferences
	}
	vector, err := preference.ParseVector(raw)
	if err != nil {
		return err
	}

	tier, appBlock, err := calibration.Resolve(intensity)
	if err != nil {
		return err
	}

	prefBlock, guidanceBlock, err := preference.Calibrate(vector)
	if err != nil {
		return err
	}

	instr := calibration.Compose(prefBlock, guidanceBlock, appBlock, tier)
	if err := s.sessions.Replace(ctx, conversationID, instr); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Calibration updated",
		"conversation_id", conversationID, "intensity", intensity, "tier", tier)
	return nil
}

// Message assembles and sends one user message through the pipeline and
// returns the assistant's reply. Both sides of the exchange are
// appended to the conversation log; visible controls whether the
// user message is shown by the front-end (seed messages pass false).
func (s *Service) Message(ctx context.Context, conversationID, text string, visible bool) (string, error) {
	if text == "" {
		return "", fmt.Errorf("message text cannot be empty")
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if conv == nil {
		return "", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}

	instr, err := s.sessions.Current(ctx, conversationID)
	if err != nil {
		return "", err
	}

	snippets, err := s.retriever.Search(ctx, text, s.snippetLimit)
	if err != nil {
		// Degraded retrieval shrinks the sequence but never blocks it.
		s.logger.WarnContext(ctx, "Snippet retrieval failed, continuing without context",
			"conversation_id", conversationID, "error", err)
		snippets = nil
	}

	seq := turn.Assemble(s.systemInstruction(conv.UserID), instr, snippets, text)

	s.mu.Lock()
	s.lastShapes[conversationID] = seq.Describe()
	s.mu.Unlock()

	reply, err := s.assembler.Send(ctx, seq)
	if err != nil {
		s.logger.ErrorContext(ctx, "Message generation failed",
			"conversation_id", conversationID, "error", err)
		return "", err
	}

	now := time.Now().UTC()
	userMsg := &database.Message{
		ConversationID: conversationID,
		Role:           database.RoleUser,
		Content:        text,
		Visible:        visible,
		Timestamp:      now,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return "", err
	}

	assistantMsg := &database.Message{
		ConversationID: conversationID,
		Role:           database.RoleAssistant,
		Content:        reply,
		Visible:        true,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return "", err
	}

	return reply, nil
}

// EndConversation discards the conversation's session state. The
// conversation log itself is retained.
func (s *Service) EndConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.lastShapes, conversationID)
	s.mu.Unlock()
	return s.sessions.End(ctx, conversationID)
}

// AuditReport summarizes a conversation's current calibration for
// inspection tooling.
type AuditReport struct {
	InstructionText string
	Tier            calibration.Tier
	LastSequence    turn.Shape
}

// Audit returns the conversation's active instruction and the shape of
// the most recently assembled sequence.
func (s *Service) Audit(ctx context.Context, conversationID string) (AuditReport, error) {
	instr, err := s.sessions.Current(ctx, conversationID)
	if err != nil {
		return AuditReport{}, err
	}

	s.mu.Lock()
	shape := s.lastShapes[conversationID]
	s.mu.Unlock()

	return AuditReport{
		InstructionText: instr.Text,
		Tier:            instr.Tier,
		LastSequence:    shape,
	}, nil
}

// systemInstruction enriches the base instruction with the user's
// identity details when a profile is known.
func (s *Service) systemInstruction(userID string) string {
	p, ok := s.profiles.Get(userID)
	if !ok {
		return s.baseInstruction
	}

	var sb strings.Builder
	sb.WriteString(s.baseInstruction)
	if p.FullName != "" {
		sb.WriteString(fmt.Sprintf("\n\nYou are assisting %s.", p.FullName))
	}
	if p.Description != "" {
		sb.WriteString(" " + p.Description)
	}
	return sb.String()
}
