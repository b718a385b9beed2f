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

// Classifier runs the three independent classification calls: question
// type, data requirement, period requirement. Every failure path resolves
// to a fixed default; classification never returns an error to the caller.
type Classifier struct {
	gemini  interfaces.GeminiClient
	logger  *common.Logger
	timeout time.Duration
}

// NewClassifier creates a classifier backed by the given generation client
func NewClassifier(gemini interfaces.GeminiClient, timeout time.Duration, logger *common.Logger) *Classifier {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Classifier{gemini: gemini, logger: logger, timeout: timeout}
}

// Classification responses are a single enum token or a small JSON
// object; output is capped and sampled at temperature zero.
const (
	classifyMaxOutputTokens = 64
	periodMaxOutputTokens   = 256
)

func classifyOptions(maxTokens int32) []interfaces.GenerateOption {
	return []interfaces.GenerateOption{
		interfaces.WithLiteModel(),
		interfaces.WithMaxOutputTokens(maxTokens),
		interfaces.WithTemperature(0),
	}
}

type generateResult struct {
	text string
	err  error
}

// generateRaced runs a generation call raced against the classifier
// timeout. A timed-out call's eventual result is discarded, not awaited.
func (c *Classifier) generateRaced(ctx context.Context, prompt string, opts ...interfaces.GenerateOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	result := make(chan generateResult, 1)
	go func() {
		defer cancel()
		text, err := c.gemini.GenerateText(ctx, prompt, opts...)
		result <- generateResult{text: text, err: err}
	}()

	select {
	case r := <-result:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// historyExcerpt renders up to the last 3 turns for prompt context
func historyExcerpt(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	turns := history
	if len(turns) > 3 {
		turns = turns[len(turns)-3:]
	}
	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	for _, turn := range turns {
		sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
	}
	return sb.String()
}

const questionTypePromptFormat = `Classify the following question into one of these three categories:
1. 'GENERAL_FINANCE' - for general financial concepts, market trends, or questions about individuals that don't require specific company financial statements
2. 'COMPANY_SPECIFIC_FINANCE' - for questions that specifically require analyzing a company's financial statements
3. 'COMPANY_GENERAL' - for general questions about a company that don't require financial analysis

Examples:
- 'What is the average P/E ratio for the tech industry?' -> GENERAL_FINANCE
- 'How does inflation affect stock markets?' -> GENERAL_FINANCE
- 'How does Bill Gates' charitable giving affect his net worth?' -> GENERAL_FINANCE
- 'What is Apple's revenue for the last quarter?' -> COMPANY_SPECIFIC_FINANCE
- 'What was Microsoft's profit margin in 2023?' -> COMPANY_SPECIFIC_FINANCE
- 'What is Tesla's mission statement?' -> COMPANY_GENERAL
- 'Who is the CEO of Amazon?' -> COMPANY_GENERAL

Rules:
- If the question requires analyzing specific company financial statements or metrics, classify as COMPANY_SPECIFIC_FINANCE
- If the question is about general market trends, concepts, or individuals, classify as GENERAL_FINANCE
- If the question is about company information but doesn't need financial analysis, classify as COMPANY_GENERAL

%s%sQuestion to classify: %s

Return only the category name.`

// ClassifyQuestionType classifies a question as general finance, company
// general, or company-specific finance. Returns GENERAL_FINANCE on
// timeout, parse failure, or an out-of-vocabulary response.
func (c *Classifier) ClassifyQuestionType(ctx context.Context, question, ticker string, history []models.ConversationTurn) models.QuestionType {
	tickerLine := ""
	if ticker != "" {
		tickerLine = fmt.Sprintf("Company ticker under discussion: %s\n\n", strings.ToUpper(ticker))
	}
	historyBlock := ""
	if h := historyExcerpt(history); h != "" {
		historyBlock = h + "\n"
	}
	prompt := fmt.Sprintf(questionTypePromptFormat, tickerLine, historyBlock, question)

	response, err := c.generateRaced(ctx, prompt, classifyOptions(classifyMaxOutputTokens)...)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Question type classification failed, using default")
		return models.QuestionTypeGeneralFinance
	}

	if questionType, ok := models.ParseQuestionType(response); ok {
		return questionType
	}

	// Token embedded in prose; most specific category wins when the
	// response mentions several
	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, string(models.QuestionTypeCompanySpecificFinance)):
		return models.QuestionTypeCompanySpecificFinance
	case strings.Contains(upper, string(models.QuestionTypeCompanyGeneral)):
		return models.QuestionTypeCompanyGeneral
	case strings.Contains(upper, string(models.QuestionTypeGeneralFinance)):
		return models.QuestionTypeGeneralFinance
	default:
		c.logger.Warn().Str("response", response).Msg("Unknown question type response, using default")
		return models.QuestionTypeGeneralFinance
	}
}

const dataRequirementPromptFormat = `Analyze this question%s and determine what level of financial data is needed:
Question: "%s"

Classify into one of these categories:

1. 'NONE' - Question can be answered without any financial data (e.g., "What does the company do?", "Who is the CEO?", "What industry is it in?")

2. 'BASIC' - Question needs only basic company metrics like market cap, P/E ratio, basic ratios (e.g., "What is the market cap?", "What's the P/E ratio?", "Is the company profitable?")

3. 'DETAILED' - Question requires specific financial statement data like revenue, expenses, cash flow details (e.g., "What was revenue last quarter?", "How much debt is there?", "What's the operating margin trend?")

Examples:
- "What does Apple do?" -> NONE
- "Who is Tesla's CEO?" -> NONE
- "What is Microsoft's market cap?" -> BASIC
- "Is Amazon profitable?" -> BASIC
- "What was Apple's revenue in Q3 2024?" -> DETAILED
- "How much cash does Tesla have?" -> DETAILED
- "What's Google's debt-to-equity ratio?" -> DETAILED

%sReturn only the classification: NONE, BASIC, or DETAILED`

// ClassifyDataRequirement determines how much financial data the question
// needs. Returns NONE on timeout, parse failure, or an out-of-vocabulary
// response.
func (c *Classifier) ClassifyDataRequirement(ctx context.Context, question, ticker string, history []models.ConversationTurn) models.DataRequirement {
	about := ""
	if ticker != "" {
		about = fmt.Sprintf(" about %s", strings.ToUpper(ticker))
	}
	historyBlock := ""
	if h := historyExcerpt(history); h != "" {
		historyBlock = h + "\n"
	}
	prompt := fmt.Sprintf(dataRequirementPromptFormat, about, question, historyBlock)

	response, err := c.generateRaced(ctx, prompt, classifyOptions(classifyMaxOutputTokens)...)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Data requirement classification failed, using default")
		return models.DataRequirementNone
	}

	if requirement, ok := models.ParseDataRequirement(response); ok {
		return requirement
	}

	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, string(models.DataRequirementDetailed)):
		return models.DataRequirementDetailed
	case strings.Contains(upper, string(models.DataRequirementBasic)):
		return models.DataRequirementBasic
	case strings.Contains(upper, string(models.DataRequirementNone)):
		return models.DataRequirementNone
	default:
		c.logger.Warn().Str("response", response).Msg("Unknown data requirement response, using default")
		return models.DataRequirementNone
	}
}

const periodRequirementPromptFormat = `Analyze this question%s and determine which financial periods are needed:
Question: "%s"

Determine:
1. Period type needed: "annual", "quarterly", or "both"
2. Specific periods: Which years or quarters? Or just recent periods?

Examples:
- "What was Apple's revenue in 2023?" -> annual, years: [2023]
- "What was Apple revenue in the most recent year?" -> annual, num_periods: 1
- "How did Tesla perform in Q3 2024?" -> quarterly, quarters: ["2024-Q3"]
- "Show me Microsoft's revenue trend over the last 3 years" -> annual, num_periods: 3
- "Compare Amazon's Q1 and Q2 2024 results" -> quarterly, quarters: ["2024-Q1", "2024-Q2"]
- "What's Google's 5-year revenue growth?" -> annual, num_periods: 5
- "Analyze Meta's quarterly performance in 2024" -> quarterly, quarters: ["2024-Q1", "2024-Q2", "2024-Q3", "2024-Q4"]
- "What was Netflix's annual revenue last year?" -> annual, num_periods: 1
- "Show both annual and quarterly trends" -> both, num_periods: 3

Return your answer in this EXACT JSON format (no other text):
{
    "period_type": "annual" | "quarterly" | "both",
    "specific_years": [2023, 2024] or null,
    "specific_quarters": ["2024-Q1", "2024-Q2"] or null,
    "num_periods": 3 or null
}

Rules:
- If no specific year/quarter mentioned, use num_periods with a reasonable number (3-5)
- Quarters should be in format "YYYY-Q#" (e.g., "2024-Q1")
- Only fill specific_years OR specific_quarters OR num_periods, not multiple
- Default to annual unless quarterly is explicitly mentioned`

type periodResponse struct {
	PeriodType       string   `json:"period_type"`
	SpecificYears    []int    `json:"specific_years"`
	SpecificQuarters []string `json:"specific_quarters"`
	NumPeriods       int      `json:"num_periods"`
}

// ClassifyPeriodRequirement determines which statement periods a detailed
// question needs. Returns the annual default on timeout or parse failure.
func (c *Classifier) ClassifyPeriodRequirement(ctx context.Context, question, ticker string) models.PeriodSpec {
	about := ""
	if ticker != "" {
		about = fmt.Sprintf(" about %s", strings.ToUpper(ticker))
	}
	prompt := fmt.Sprintf(periodRequirementPromptFormat, about, question)

	response, err := c.generateRaced(ctx, prompt, classifyOptions(periodMaxOutputTokens)...)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Period requirement classification failed, using default")
		return models.DefaultPeriodSpec()
	}

	var parsed periodResponse
	if !ExtractJSONInto(response, &parsed) {
		c.logger.Warn().Str("response", response).Msg("Unparseable period requirement response, using default")
		return models.DefaultPeriodSpec()
	}

	period, ok := models.ParsePeriodRequirement(parsed.PeriodType)
	if !ok {
		c.logger.Warn().Str("period_type", parsed.PeriodType).Msg("Unknown period type, using default")
		return models.DefaultPeriodSpec()
	}

	return models.PeriodSpec{
		Period:     period,
		Years:      parsed.SpecificYears,
		Quarters:   parsed.SpecificQuarters,
		NumPeriods: parsed.NumPeriods,
	}
}
