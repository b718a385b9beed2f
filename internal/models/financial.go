package models

import "time"

// Fundamental is a company snapshot: identity, market cap, valuation ratios
type Fundamental struct {
	Ticker        string    `json:"ticker" badgerhold:"key"`
	Name          string    `json:"name"`
	Exchange      string    `json:"exchange,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	Description   string    `json:"description,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
	DividendYield float64   `json:"dividend_yield,omitempty"`
	EPS           float64   `json:"eps,omitempty"`
	Beta          float64   `json:"beta,omitempty"`
	WebURL        string    `json:"web_url,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// PeriodType distinguishes annual from quarterly statements
type PeriodType string

const (
	PeriodAnnual    PeriodType = "annual"
	PeriodQuarterly PeriodType = "quarterly"
)

// Statement is one reporting period's income statement highlights,
// with the filing it was reported in when known
type Statement struct {
	Ticker          string     `json:"ticker"`
	Period          PeriodType `json:"period"`
	Date            string     `json:"date"` // period end date, YYYY-MM-DD
	FiscalYear      string     `json:"fiscal_year,omitempty"`
	TotalRevenue    float64    `json:"total_revenue,omitempty"`
	GrossProfit     float64    `json:"gross_profit,omitempty"`
	OperatingIncome float64    `json:"operating_income,omitempty"`
	NetIncome       float64    `json:"net_income,omitempty"`
	TotalAssets     float64    `json:"total_assets,omitempty"`
	TotalLiab       float64    `json:"total_liabilities,omitempty"`
	FreeCashFlow    float64    `json:"free_cash_flow,omitempty"`
	FilingName      string     `json:"filing_name,omitempty"` // e.g. "10-K 2023"
	FilingURL       string     `json:"filing_url,omitempty"`
}

// StatementSet is the cached statements of one ticker and period type
type StatementSet struct {
	Key         string      `json:"key" badgerhold:"key"` // ticker + ":" + period
	Ticker      string      `json:"ticker"`
	Period      PeriodType  `json:"period"`
	Statements  []Statement `json:"statements"`
	LastUpdated time.Time   `json:"last_updated"`
}

// StatementSetKey builds the storage key for a ticker's statement set
func StatementSetKey(ticker string, period PeriodType) string {
	return ticker + ":" + string(period)
}

// FinancialData is the executed fetch plan's result. Nil or empty fields
// mean the source was not requested or was unavailable; the context
// builder omits that material rather than failing.
type FinancialData struct {
	Fundamental *Fundamental `json:"fundamental,omitempty"`
	Annual      []Statement  `json:"annual,omitempty"`
	Quarterly   []Statement  `json:"quarterly,omitempty"`
}

// Empty reports whether no financial material was retrieved at all
func (d *FinancialData) Empty() bool {
	if d == nil {
		return true
	}
	return d.Fundamental == nil && len(d.Annual) == 0 && len(d.Quarterly) == 0
}

// SourceLink is one named source URL offered to the answer model
type SourceLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
