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

// financialStore implements FinancialStore using BadgerDB
type financialStore struct {
	db     *BadgerDB
	logger *common.Logger
}

func newFinancialStore(db *BadgerDB, logger *common.Logger) *financialStore {
	return &financialStore{db: db, logger: logger}
}

func (s *financialStore) GetFundamental(ctx context.Context, ticker string) (*models.Fundamental, error) {
	var f models.Fundamental
	err := s.db.store.Get(ticker, &f)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fundamental: %w", err)
	}
	return &f, nil
}

func (s *financialStore) SaveFundamental(ctx context.Context, f *models.Fundamental) error {
	if f.LastUpdated.IsZero() {
		f.LastUpdated = time.Now().UTC()
	}
	if err := s.db.store.Upsert(f.Ticker, f); err != nil {
		return fmt.Errorf("failed to save fundamental: %w", err)
	}
	s.logger.Debug().Str("ticker", f.Ticker).Msg("Fundamental saved")
	return nil
}

func (s *financialStore) GetStatements(ctx context.Context, ticker string, period models.PeriodType) (*models.StatementSet, error) {
	var set models.StatementSet
	err := s.db.store.Get(models.StatementSetKey(ticker, period), &set)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get statements: %w", err)
	}
	return &set, nil
}

func (s *financialStore) SaveStatements(ctx context.Context, set *models.StatementSet) error {
	if set.Key == "" {
		set.Key = models.StatementSetKey(set.Ticker, set.Period)
	}
	if set.LastUpdated.IsZero() {
		set.LastUpdated = time.Now().UTC()
	}
	if err := s.db.store.Upsert(set.Key, set); err != nil {
		return fmt.Errorf("failed to save statements: %w", err)
	}
	s.logger.Debug().Str("ticker", set.Ticker).Str("period", string(set.Period)).Int("count", len(set.Statements)).Msg("Statements saved")
	return nil
}
