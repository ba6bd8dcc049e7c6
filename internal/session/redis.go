package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgmulei/obi-slv2/internal/calibration"
)

const keyPrefix = "obi:session:"

// redisManager keeps calibration state in Redis, one JSON value per
// conversation with a sliding TTL.
type redisManager struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisManager creates a Redis-backed session manager and verifies
// connectivity.
func NewRedisManager(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log := logger.With("component", "session", "backend", "redis")
	log.Info("Redis session backend connected", "addr", addr, "ttl", ttl)
	return &redisManager{client: client, ttl: ttl, logger: log}, nil
}

func sessionKey(conversationID string) string {
	return keyPrefix + conversationID
}

func (m *redisManager) Current(ctx context.Context, conversationID string) (calibration.Instruction, error) {
	data, err := m.client.Get(ctx, sessionKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return calibration.Default(), nil
	}
	if err != nil {
		return calibration.Instruction{}, fmt.Errorf("failed to load session %s: %w", conversationID, err)
	}

	var in calibration.Instruction
	if err := json.Unmarshal(data, &in); err != nil {
		m.logger.ErrorContext(ctx, "Stored session is not valid JSON, falling back to default",
			"conversation_id", conversationID, "error", err)
		return calibration.Default(), nil
	}
	if err := in.Validate(); err != nil {
		m.logger.ErrorContext(ctx, "Stored session failed validation, falling back to default",
			"conversation_id", conversationID, "error", err)
		return calibration.Default(), nil
	}

	// Sliding expiry: reading a session keeps it alive.
	if err := m.client.Expire(ctx, sessionKey(conversationID), m.ttl).Err(); err != nil {
		m.logger.WarnContext(ctx, "Failed to refresh session TTL",
			"conversation_id", conversationID, "error", err)
	}

	return in, nil
}

func (m *redisManager) Replace(ctx context.Context, conversationID string, in calibration.Instruction) error {
	if err := in.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", conversationID, err)
	}

	if err := m.client.Set(ctx, sessionKey(conversationID), data, m.ttl).Err(); err != nil {
		m.logger.ErrorContext(ctx, "Failed to store session",
			"conversation_id", conversationID, "error", err)
		return fmt.Errorf("failed to store session %s: %w", conversationID, err)
	}

	m.logger.DebugContext(ctx, "Calibration instruction replaced",
		"conversation_id", conversationID, "tier", in.Tier)
	return nil
}

func (m *redisManager) End(ctx context.Context, conversationID string) error {
	if err := m.client.Del(ctx, sessionKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to end session %s: %w", conversationID, err)
	}
	m.logger.DebugContext(ctx, "Session ended", "conversation_id", conversationID)
	return nil
}

// Close releases the Redis connection.
func (m *redisManager) Close() error {
	return m.client.Close()
}
