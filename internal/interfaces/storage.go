package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/finsight/internal/models"
)

// ErrNotFound indicates a requested record does not exist in storage
var ErrNotFound = errors.New("not found")

// StorageManager coordinates all storage backends
type StorageManager interface {
	FinancialStore() FinancialStore
	ConversationStore() ConversationStore

	// DataPath returns the base data directory path
	DataPath() string

	// Close releases all storage resources
	Close() error
}

// FinancialStore caches fetched financial data with freshness timestamps.
// Reads return ErrNotFound for absent records; staleness is the caller's
// concern via LastUpdated.
type FinancialStore interface {
	GetFundamental(ctx context.Context, ticker string) (*models.Fundamental, error)
	SaveFundamental(ctx context.Context, f *models.Fundamental) error

	GetStatements(ctx context.Context, ticker string, period models.PeriodType) (*models.StatementSet, error)
	SaveStatements(ctx context.Context, set *models.StatementSet) error
}

// ConversationStore persists per-conversation routing metadata and message
// history. Expired conversations read as ErrNotFound; eviction is owned by
// the store.
type ConversationStore interface {
	// GetMeta returns the stored classification metadata, or ErrNotFound
	// when the conversation is absent or expired
	GetMeta(ctx context.Context, conversationID string) (*models.ConversationMeta, error)

	// SetMeta stores classification metadata, last write wins
	SetMeta(ctx context.Context, meta *models.ConversationMeta) error

	// GetHistory returns up to lastPairs most recent question/answer pairs
	// as ordered turns, oldest first
	GetHistory(ctx context.Context, conversationID string, lastPairs int) ([]models.ConversationTurn, error)

	// AppendTurns appends turns to the conversation history
	AppendTurns(ctx context.Context, conversationID string, turns ...models.ConversationTurn) error
}
