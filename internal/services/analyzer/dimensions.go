package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

const (
	// sectionCount is the required number of outline sections
	sectionCount = 2
	// maxTitleWords caps a section title's length
	maxTitleWords = 6
	// focus point counts allowed per section
	minFocusPoints = 2
	maxFocusPoints = 4
)

// DimensionAnalyzer generates the two-section outline for detailed
// answers. Output is validated all-or-nothing; any violation discards the
// whole result in favor of the fixed fallback.
type DimensionAnalyzer struct {
	gemini  interfaces.GeminiClient
	logger  *common.Logger
	timeout time.Duration
}

// NewDimensionAnalyzer creates a dimension analyzer
func NewDimensionAnalyzer(gemini interfaces.GeminiClient, timeout time.Duration, logger *common.Logger) *DimensionAnalyzer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &DimensionAnalyzer{gemini: gemini, logger: logger, timeout: timeout}
}

// FallbackSections returns the fixed two-section outline used when
// generation fails. Indistinguishable in shape from a generated outline.
func FallbackSections() []models.DimensionSection {
	return []models.DimensionSection{
		{
			Title: "Financial Performance",
			FocusPoints: []string{
				"Analyze key metrics from the statements (revenue, net income, profit margins)",
				"Explain year-over-year growth/decline trends and patterns",
			},
		},
		{
			Title: "Strategic Positioning",
			FocusPoints: []string{
				"Industry context and competitive position",
				"Future outlook, opportunities, and growth risks",
			},
		},
	}
}

const dimensionPromptFormat = `You are an expert financial analyst. Analyze this question about %s and determine the most relevant sections for a comprehensive answer.

Question: %s

Identify the 2 most important aspects to cover. These will form the main body of the analysis (a summary section will be added automatically).

Return ONLY a JSON object (no markdown, no explanation) with this exact structure:
{
    "sections": [
        {
            "title": "Catchy Section Title (max 6 words)",
            "focus_points": [
                "Specific aspect to analyze",
                "Metrics or data points to examine",
                "Comparisons or context to provide"
            ]
        }
    ]
}

**Examples:**

Question: "How is Apple's revenue growing?"
{
    "sections": [
        {
            "title": "Revenue Growth Trajectory",
            "focus_points": [
                "Analyze revenue growth rates year-over-year",
                "Identify key product lines driving growth",
                "Compare against industry peers"
            ]
        },
        {
            "title": "Growth Sustainability & Outlook",
            "focus_points": [
                "Assess growth consistency and patterns",
                "Evaluate market opportunities and risks",
                "Project future growth potential"
            ]
        }
    ]
}

Question: "What is Tesla's profit margin?"
{
    "sections": [
        {
            "title": "Profitability Metrics",
            "focus_points": [
                "Calculate gross and net profit margins",
                "Analyze margin trends over recent periods"
            ]
        },
        {
            "title": "Competitive Comparison",
            "focus_points": [
                "Compare with automotive industry benchmarks",
                "Assess margin sustainability and risks"
            ]
        }
    ]
}

**Guidelines:**
- Generate EXACTLY 2 sections (the most relevant aspects)
- Section titles must be catchy, professional, and max 6 words
- Each section should have 2-4 focus points
- Focus points should be specific and actionable
- Return ONLY valid JSON, no markdown code blocks`

type dimensionResponse struct {
	Sections []models.DimensionSection `json:"sections"`
}

// Analyze generates two outline sections for a detailed question. ok is
// false on timeout, parse failure, or validation failure; the caller
// substitutes FallbackSections.
func (a *DimensionAnalyzer) Analyze(ctx context.Context, question, ticker string) (sections []models.DimensionSection, ok bool) {
	prompt := fmt.Sprintf(dimensionPromptFormat, strings.ToUpper(ticker), question)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)

	type analyzeResult struct {
		text string
		err  error
	}
	result := make(chan analyzeResult, 1)
	go func() {
		defer cancel()
		var sb strings.Builder
		err := a.gemini.GenerateTextStream(ctx, prompt, func(chunk string) error {
			sb.WriteString(chunk)
			return nil
		}, interfaces.WithLiteModel())
		result <- analyzeResult{text: sb.String(), err: err}
	}()

	var response string
	select {
	case r := <-result:
		if r.err != nil {
			a.logger.Warn().Err(r.err).Msg("Dimension generation failed")
			return nil, false
		}
		response = r.text
	case <-ctx.Done():
		a.logger.Warn().Str("question", question).Msg("Dimension generation timed out")
		return nil, false
	}

	var parsed dimensionResponse
	if !ExtractJSONInto(response, &parsed) {
		a.logger.Warn().Msg("Could not extract dimension JSON from response")
		return nil, false
	}

	if !ValidateSections(parsed.Sections) {
		a.logger.Warn().Int("count", len(parsed.Sections)).Msg("Dimension sections failed validation")
		return nil, false
	}

	return parsed.Sections, true
}

// ValidateSections checks an outline for exactly two sections, each with a
// short clean title and 2-4 non-empty focus points. Partial acceptance is
// disallowed: a mismatched pair is worse than the generic fallback.
func ValidateSections(sections []models.DimensionSection) bool {
	if len(sections) != sectionCount {
		return false
	}
	for _, section := range sections {
		if !validTitle(section.Title) {
			return false
		}
		if len(section.FocusPoints) < minFocusPoints || len(section.FocusPoints) > maxFocusPoints {
			return false
		}
		for _, point := range section.FocusPoints {
			if strings.TrimSpace(point) == "" {
				return false
			}
		}
	}
	return true
}

// validTitle accepts titles of up to 6 words drawn from letters, digits,
// spaces, ampersands, and hyphens.
func validTitle(title string) bool {
	if strings.TrimSpace(title) == "" {
		return false
	}
	if len(strings.Fields(title)) > maxTitleWords {
		return false
	}
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == ' ' || r == '&' || r == '-':
		default:
			return false
		}
	}
	return true
}
