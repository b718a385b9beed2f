package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// conversationStore implements ConversationStore using BadgerDB. Records
// older than the TTL read as not found; the stale record is deleted on the
// way out.
type conversationStore struct {
	db     *BadgerDB
	logger *common.Logger
	ttl    time.Duration
}

func newConversationStore(db *BadgerDB, logger *common.Logger, ttl time.Duration) *conversationStore {
	return &conversationStore{db: db, logger: logger, ttl: ttl}
}

func (s *conversationStore) expired(updatedAt time.Time) bool {
	return s.ttl > 0 && time.Since(updatedAt) > s.ttl
}

func (s *conversationStore) GetMeta(ctx context.Context, conversationID string) (*models.ConversationMeta, error) {
	var meta models.ConversationMeta
	err := s.db.store.Get(conversationID, &meta)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation meta: %w", err)
	}
	if s.expired(meta.UpdatedAt) {
		if err := s.db.store.Delete(conversationID, models.ConversationMeta{}); err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to evict expired conversation meta")
		}
		return nil, interfaces.ErrNotFound
	}
	return &meta, nil
}

func (s *conversationStore) SetMeta(ctx context.Context, meta *models.ConversationMeta) error {
	meta.UpdatedAt = time.Now().UTC()
	if err := s.db.store.Upsert(meta.ConversationID, meta); err != nil {
		return fmt.Errorf("failed to save conversation meta: %w", err)
	}
	s.logger.Debug().Str("conversation_id", meta.ConversationID).Msg("Conversation meta saved")
	return nil
}

func (s *conversationStore) GetHistory(ctx context.Context, conversationID string, lastPairs int) ([]models.ConversationTurn, error) {
	var history models.ConversationHistory
	err := s.db.store.Get(conversationID, &history)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	if s.expired(history.UpdatedAt) {
		if err := s.db.store.Delete(conversationID, models.ConversationHistory{}); err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to evict expired conversation history")
		}
		return nil, nil
	}

	turns := history.Turns
	if lastPairs > 0 && len(turns) > lastPairs*2 {
		turns = turns[len(turns)-lastPairs*2:]
	}
	return turns, nil
}

func (s *conversationStore) AppendTurns(ctx context.Context, conversationID string, turns ...models.ConversationTurn) error {
	var history models.ConversationHistory
	err := s.db.store.Get(conversationID, &history)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to get conversation history: %w", err)
	}
	if err == badgerhold.ErrNotFound || s.expired(history.UpdatedAt) {
		history = models.ConversationHistory{ConversationID: conversationID}
	}

	history.Turns = append(history.Turns, turns...)
	history.UpdatedAt = time.Now().UTC()

	if err := s.db.store.Upsert(conversationID, &history); err != nil {
		return fmt.Errorf("failed to save conversation history: %w", err)
	}
	return nil
}
