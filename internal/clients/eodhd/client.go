// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// maxStatements caps how many periods a statement fetch returns,
	// most recent first
	maxStatements = 8
)

// Client implements the FinancialDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.FinancialDataClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return interfaces.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// fundamentalsResponse mirrors the subset of the EODHD fundamentals payload
// the analyzer needs
type fundamentalsResponse struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Exchange     string `json:"Exchange"`
		Sector       string `json:"Sector"`
		Industry     string `json:"Industry"`
		Description  string `json:"Description"`
		CurrencyCode string `json:"CurrencyCode"`
		WebURL       string `json:"WebURL"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
		PERatio              flexFloat64 `json:"PERatio"`
		DividendYield        flexFloat64 `json:"DividendYield"`
		EarningsShare        flexFloat64 `json:"EarningsShare"`
	} `json:"Highlights"`
	Technicals struct {
		Beta flexFloat64 `json:"Beta"`
	} `json:"Technicals"`
	Financials struct {
		IncomeStatement struct {
			Yearly    map[string]statementEntry `json:"yearly"`
			Quarterly map[string]statementEntry `json:"quarterly"`
		} `json:"Income_Statement"`
		BalanceSheet struct {
			Yearly    map[string]balanceEntry `json:"yearly"`
			Quarterly map[string]balanceEntry `json:"quarterly"`
		} `json:"Balance_Sheet"`
		CashFlow struct {
			Yearly    map[string]cashFlowEntry `json:"yearly"`
			Quarterly map[string]cashFlowEntry `json:"quarterly"`
		} `json:"Cash_Flow"`
	} `json:"Financials"`
}

type statementEntry struct {
	Date            string      `json:"date"`
	TotalRevenue    flexFloat64 `json:"totalRevenue"`
	GrossProfit     flexFloat64 `json:"grossProfit"`
	OperatingIncome flexFloat64 `json:"operatingIncome"`
	NetIncome       flexFloat64 `json:"netIncome"`
}

type balanceEntry struct {
	Date        string      `json:"date"`
	TotalAssets flexFloat64 `json:"totalAssets"`
	TotalLiab   flexFloat64 `json:"totalLiab"`
}

type cashFlowEntry struct {
	Date         string      `json:"date"`
	FreeCashFlow flexFloat64 `json:"freeCashFlow"`
}

// GetFundamental retrieves a company snapshot
func (c *Client) GetFundamental(ctx context.Context, ticker string) (*models.Fundamental, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)

	params := url.Values{}
	params.Set("filter", "General,Highlights,Technicals")

	var resp fundamentalsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.General.Code == "" && resp.General.Name == "" {
		return nil, interfaces.ErrNotFound
	}

	return &models.Fundamental{
		Ticker:        ticker,
		Name:          resp.General.Name,
		Exchange:      resp.General.Exchange,
		Sector:        resp.General.Sector,
		Industry:      resp.General.Industry,
		Description:   resp.General.Description,
		Currency:      resp.General.CurrencyCode,
		MarketCap:     float64(resp.Highlights.MarketCapitalization),
		PERatio:       float64(resp.Highlights.PERatio),
		DividendYield: float64(resp.Highlights.DividendYield),
		EPS:           float64(resp.Highlights.EarningsShare),
		Beta:          float64(resp.Technicals.Beta),
		WebURL:        resp.General.WebURL,
		LastUpdated:   time.Now().UTC(),
	}, nil
}

// GetAnnualStatements retrieves annual income statement history
func (c *Client) GetAnnualStatements(ctx context.Context, ticker string) ([]models.Statement, error) {
	return c.getStatements(ctx, ticker, models.PeriodAnnual)
}

// GetQuarterlyStatements retrieves quarterly income statement history
func (c *Client) GetQuarterlyStatements(ctx context.Context, ticker string) ([]models.Statement, error) {
	return c.getStatements(ctx, ticker, models.PeriodQuarterly)
}

func (c *Client) getStatements(ctx context.Context, ticker string, period models.PeriodType) ([]models.Statement, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)

	params := url.Values{}
	params.Set("filter", "Financials")

	var resp fundamentalsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	income := resp.Financials.IncomeStatement.Yearly
	balance := resp.Financials.BalanceSheet.Yearly
	cash := resp.Financials.CashFlow.Yearly
	if period == models.PeriodQuarterly {
		income = resp.Financials.IncomeStatement.Quarterly
		balance = resp.Financials.BalanceSheet.Quarterly
		cash = resp.Financials.CashFlow.Quarterly
	}
	if len(income) == 0 {
		return nil, interfaces.ErrNotFound
	}

	dates := make([]string, 0, len(income))
	for date := range income {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > maxStatements {
		dates = dates[:maxStatements]
	}

	statements := make([]models.Statement, 0, len(dates))
	for _, date := range dates {
		entry := income[date]
		stmt := models.Statement{
			Ticker:          ticker,
			Period:          period,
			Date:            date,
			TotalRevenue:    float64(entry.TotalRevenue),
			GrossProfit:     float64(entry.GrossProfit),
			OperatingIncome: float64(entry.OperatingIncome),
			NetIncome:       float64(entry.NetIncome),
		}
		if len(date) >= 4 {
			stmt.FiscalYear = date[:4]
		}
		if b, ok := balance[date]; ok {
			stmt.TotalAssets = float64(b.TotalAssets)
			stmt.TotalLiab = float64(b.TotalLiab)
		}
		if cf, ok := cash[date]; ok {
			stmt.FreeCashFlow = float64(cf.FreeCashFlow)
		}
		stmt.FilingName, stmt.FilingURL = filingLink(ticker, period, stmt.FiscalYear, date)
		statements = append(statements, stmt)
	}

	return statements, nil
}

// filingLink builds a best-effort EDGAR search link for the filing that
// covers a reporting period. EODHD does not return filing URLs directly.
func filingLink(ticker string, period models.PeriodType, fiscalYear, date string) (name, link string) {
	form := "10-K"
	label := fiscalYear
	if period == models.PeriodQuarterly {
		form = "10-Q"
		label = date
	}
	if label == "" {
		return "", ""
	}
	name = fmt.Sprintf("%s %s %s", ticker, form, label)
	link = fmt.Sprintf(
		"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&company=%s&type=%s&dateb=&owner=include&count=10",
		url.QueryEscape(ticker), form,
	)
	return name, link
}
