package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// BuildFetchPlan maps a classification to the minimum financial data to
// retrieve. Pure total function: NONE and BASIC ignore the period.
func BuildFetchPlan(data models.DataRequirement, period models.PeriodRequirement) models.FetchPlan {
	switch data {
	case models.DataRequirementBasic:
		return models.FetchPlan{Fundamental: true}
	case models.DataRequirementDetailed:
		return models.FetchPlan{
			Fundamental: true,
			Annual:      period == models.PeriodRequirementAnnual || period == models.PeriodRequirementBoth,
			Quarterly:   period == models.PeriodRequirementQuarterly || period == models.PeriodRequirementBoth,
		}
	default:
		return models.FetchPlan{}
	}
}

// DataOptimizer executes a fetch plan against the cache and the upstream
// provider. A failure on one source never aborts the others; missing
// material is a valid state the context builder handles.
type DataOptimizer struct {
	client  interfaces.FinancialDataClient
	store   interfaces.FinancialStore
	logger  *common.Logger
	timeout time.Duration
}

// NewDataOptimizer creates a data optimizer
func NewDataOptimizer(client interfaces.FinancialDataClient, store interfaces.FinancialStore, timeout time.Duration, logger *common.Logger) *DataOptimizer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &DataOptimizer{client: client, store: store, logger: logger, timeout: timeout}
}

// Execute fetches the sources named by the plan, cache first, then the
// upstream client. Fresh fetches are written back to the cache. Per-source
// failures are logged as warnings and leave that field empty.
func (o *DataOptimizer) Execute(ctx context.Context, ticker string, plan models.FetchPlan, spec models.PeriodSpec) *models.FinancialData {
	data := &models.FinancialData{}

	if plan.Fundamental {
		data.Fundamental = o.fetchFundamental(ctx, ticker)
	}
	if plan.Annual {
		data.Annual = o.fetchStatements(ctx, ticker, models.PeriodAnnual, spec)
	}
	if plan.Quarterly {
		data.Quarterly = o.fetchStatements(ctx, ticker, models.PeriodQuarterly, spec)
	}

	return data
}

func (o *DataOptimizer) fetchFundamental(ctx context.Context, ticker string) *models.Fundamental {
	if cached, err := o.store.GetFundamental(ctx, ticker); err == nil && common.IsFresh(cached.LastUpdated, common.FreshnessFundamentals) {
		return cached
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	fundamental, err := o.client.GetFundamental(fetchCtx, ticker)
	if err != nil {
		o.logger.Warn().Err(err).Str("ticker", ticker).Msg("Fundamental data unavailable")
		return nil
	}
	if err := o.store.SaveFundamental(ctx, fundamental); err != nil {
		o.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache fundamental")
	}
	return fundamental
}

func (o *DataOptimizer) fetchStatements(ctx context.Context, ticker string, period models.PeriodType, spec models.PeriodSpec) []models.Statement {
	var statements []models.Statement

	if cached, err := o.store.GetStatements(ctx, ticker, period); err == nil && common.IsFresh(cached.LastUpdated, common.FreshnessStatements) {
		statements = cached.Statements
	} else {
		fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		var fetchErr error
		if period == models.PeriodAnnual {
			statements, fetchErr = o.client.GetAnnualStatements(fetchCtx, ticker)
		} else {
			statements, fetchErr = o.client.GetQuarterlyStatements(fetchCtx, ticker)
		}
		if fetchErr != nil {
			o.logger.Warn().Err(fetchErr).Str("ticker", ticker).Str("period", string(period)).Msg("Statement data unavailable")
			return nil
		}
		set := &models.StatementSet{Ticker: ticker, Period: period, Statements: statements}
		if err := o.store.SaveStatements(ctx, set); err != nil {
			o.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache statements")
		}
	}

	return filterByPeriodSpec(statements, period, spec)
}

// filterByPeriodSpec narrows statements to the periods the question asked
// about. Statements are most recent first.
func filterByPeriodSpec(statements []models.Statement, period models.PeriodType, spec models.PeriodSpec) []models.Statement {
	if period == models.PeriodAnnual && len(spec.Years) > 0 {
		wanted := make(map[string]struct{}, len(spec.Years))
		for _, year := range spec.Years {
			wanted[strconv.Itoa(year)] = struct{}{}
		}
		var out []models.Statement
		for _, stmt := range statements {
			if _, ok := wanted[stmt.FiscalYear]; ok {
				out = append(out, stmt)
			}
		}
		return out
	}

	if period == models.PeriodQuarterly && len(spec.Quarters) > 0 {
		wanted := make(map[string]struct{}, len(spec.Quarters))
		for _, quarter := range spec.Quarters {
			wanted[quarter] = struct{}{}
		}
		var out []models.Statement
		for _, stmt := range statements {
			if _, ok := wanted[quarterLabel(stmt.Date)]; ok {
				out = append(out, stmt)
			}
		}
		return out
	}

	limit := spec.NumPeriods
	if limit <= 0 {
		limit = 3
		if period == models.PeriodQuarterly {
			limit = 4
		}
	}
	if len(statements) > limit {
		return statements[:limit]
	}
	return statements
}

// quarterLabel converts a period end date to "YYYY-Q#" form
func quarterLabel(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	quarter := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), quarter)
}
