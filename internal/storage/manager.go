package storage

import (
	"fmt"
	"path/filepath"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
)

// Manager implements interfaces.StorageManager using two storage areas:
// the financial cache and the conversation store.
type Manager struct {
	financialDB    *BadgerDB
	conversationDB *BadgerDB
	financial      *financialStore
	conversation   *conversationStore
	logger         *common.Logger
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager creates a new StorageManager with both storage areas
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	financialDB, err := NewBadgerDB(logger, config.Storage.Financial.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open financial store: %w", err)
	}

	conversationDB, err := NewBadgerDB(logger, config.Storage.Conversation.Path)
	if err != nil {
		financialDB.Close()
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	logger.Info().
		Str("financial", config.Storage.Financial.Path).
		Str("conversation", config.Storage.Conversation.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		financialDB:    financialDB,
		conversationDB: conversationDB,
		financial:      newFinancialStore(financialDB, logger),
		conversation:   newConversationStore(conversationDB, logger, config.Analyzer.GetConversationTTL()),
		logger:         logger,
	}, nil
}

func (m *Manager) FinancialStore() interfaces.FinancialStore {
	return m.financial
}

func (m *Manager) ConversationStore() interfaces.ConversationStore {
	return m.conversation
}

func (m *Manager) DataPath() string {
	return filepath.Dir(m.financialDB.Path())
}

// Close closes both storage areas, returning the first error
func (m *Manager) Close() error {
	var firstErr error
	if err := m.financialDB.Close(); err != nil {
		firstErr = err
	}
	if err := m.conversationDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
