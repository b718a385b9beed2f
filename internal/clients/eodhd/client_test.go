package eodhd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

func TestFlexFloat64(t *testing.T) {
	var payload struct {
		A flexFloat64 `json:"a"`
		B flexFloat64 `json:"b"`
		C flexFloat64 `json:"c"`
		D flexFloat64 `json:"d"`
		E flexFloat64 `json:"e"`
	}
	raw := `{"a": 1.5, "b": "2.75", "c": "", "d": "N/A", "e": "garbage"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, flexFloat64(1.5), payload.A)
	assert.Equal(t, flexFloat64(2.75), payload.B)
	assert.Equal(t, flexFloat64(0), payload.C)
	assert.Equal(t, flexFloat64(0), payload.D)
	assert.Equal(t, flexFloat64(0), payload.E)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-token", WithBaseURL(server.URL), WithRateLimit(100))
}

func TestGetFundamental(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fundamentals/AAPL", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("api_token"))
		assert.Equal(t, "General,Highlights,Technicals", r.URL.Query().Get("filter"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"General": {"Code": "AAPL", "Name": "Apple Inc", "Exchange": "NASDAQ", "Sector": "Technology", "CurrencyCode": "USD"},
			"Highlights": {"MarketCapitalization": 3400000000000, "PERatio": "33.5", "DividendYield": 0.0045, "EarningsShare": 6.1},
			"Technicals": {"Beta": "1.25"}
		}`))
	})

	f, err := client.GetFundamental(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", f.Ticker)
	assert.Equal(t, "Apple Inc", f.Name)
	assert.Equal(t, "USD", f.Currency)
	assert.Equal(t, 3.4e12, f.MarketCap)
	assert.Equal(t, 33.5, f.PERatio)
	assert.Equal(t, 1.25, f.Beta)
	assert.False(t, f.LastUpdated.IsZero())
}

func TestGetFundamental_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.GetFundamental(context.Background(), "NOPE")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestGetFundamental_EmptyPayloadIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.GetFundamental(context.Background(), "NOPE")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestGetFundamental_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte("subscription required"))
	})

	_, err := client.GetFundamental(context.Background(), "AAPL")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
}

func TestGetAnnualStatements(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Financials", r.URL.Query().Get("filter"))
		w.Write([]byte(`{
			"Financials": {
				"Income_Statement": {"yearly": {
					"2024-09-28": {"date": "2024-09-28", "totalRevenue": "391035000000", "netIncome": 93736000000},
					"2023-09-30": {"date": "2023-09-30", "totalRevenue": 383285000000, "netIncome": "96995000000"}
				}},
				"Balance_Sheet": {"yearly": {
					"2024-09-28": {"date": "2024-09-28", "totalAssets": 364980000000, "totalLiab": 308030000000}
				}},
				"Cash_Flow": {"yearly": {
					"2024-09-28": {"date": "2024-09-28", "freeCashFlow": "108807000000"}
				}}
			}
		}`))
	})

	statements, err := client.GetAnnualStatements(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, statements, 2)

	// Most recent first
	first := statements[0]
	assert.Equal(t, "2024-09-28", first.Date)
	assert.Equal(t, "2024", first.FiscalYear)
	assert.Equal(t, 3.91035e11, first.TotalRevenue)
	assert.Equal(t, 3.6498e11, first.TotalAssets)
	assert.Equal(t, 1.08807e11, first.FreeCashFlow)
	assert.Equal(t, "AAPL 10-K 2024", first.FilingName)
	assert.Contains(t, first.FilingURL, "sec.gov")

	second := statements[1]
	assert.Equal(t, "2023", second.FiscalYear)
	assert.Zero(t, second.TotalAssets)
}

func TestGetQuarterlyStatements_NoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Financials": {"Income_Statement": {"quarterly": {}}}}`))
	})

	_, err := client.GetQuarterlyStatements(context.Background(), "AAPL")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestGetStatements_CapsHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		yearly := make(map[string]map[string]any)
		for year := 2010; year <= 2024; year++ {
			date := jsonDate(year)
			yearly[date] = map[string]any{"date": date, "totalRevenue": 1}
		}
		payload := map[string]any{
			"Financials": map[string]any{
				"Income_Statement": map[string]any{"yearly": yearly},
			},
		}
		json.NewEncoder(w).Encode(payload)
	})

	statements, err := client.GetAnnualStatements(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, statements, maxStatements)
	assert.Equal(t, models.PeriodAnnual, statements[0].Period)
	assert.Equal(t, "2024", statements[0].FiscalYear)
}

func jsonDate(year int) string {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
