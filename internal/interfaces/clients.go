// Package interfaces defines service contracts for Finsight
package interfaces

import (
	"context"

	"github.com/bobmcallan/finsight/internal/models"
)

// GenerateOption configures a generation request
type GenerateOption func(*GenerateParams)

// GenerateParams holds generation request parameters
type GenerateParams struct {
	// Lite selects the fast model tier instead of the standard one
	Lite bool
	// MaxOutputTokens caps the response length; 0 means provider default
	MaxOutputTokens int32
	// Temperature overrides sampling temperature when non-nil
	Temperature *float32
}

// WithLiteModel routes the request to the fast model tier
func WithLiteModel() GenerateOption {
	return func(p *GenerateParams) {
		p.Lite = true
	}
}

// WithMaxOutputTokens caps the response length
func WithMaxOutputTokens(n int32) GenerateOption {
	return func(p *GenerateParams) {
		p.MaxOutputTokens = n
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float32) GenerateOption {
	return func(p *GenerateParams) {
		p.Temperature = &t
	}
}

// GeminiClient provides text generation via Google Gemini
type GeminiClient interface {
	// GenerateText generates a complete response for a prompt
	GenerateText(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateTextStream generates a response and delivers it as ordered
	// chunks via onChunk. onChunk returning an error aborts the stream.
	GenerateTextStream(ctx context.Context, prompt string, onChunk func(chunk string) error, opts ...GenerateOption) error
}

// FinancialDataClient retrieves company financial data from the upstream
// provider. Each call is independent and idempotent.
type FinancialDataClient interface {
	// GetFundamental retrieves a company snapshot
	GetFundamental(ctx context.Context, ticker string) (*models.Fundamental, error)

	// GetAnnualStatements retrieves annual income statement history
	GetAnnualStatements(ctx context.Context, ticker string) ([]models.Statement, error)

	// GetQuarterlyStatements retrieves quarterly income statement history
	GetQuarterlyStatements(ctx context.Context, ticker string) ([]models.Statement, error)
}
