package analyzer

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/finsight/internal/models"
)

// Word budgets for composed answers. Short answers stay near the base
// budget; detailed answers get a summary plus two budgeted sections.
const (
	baseWordBudget    = 150
	summaryWordBudget = 80
	sectionWordBudget = 160
)

// ContextInput carries everything the context builder needs for one answer
type ContextInput struct {
	Question     string
	Ticker       string
	QuestionType models.QuestionType
	Data         models.DataRequirement
	Financial    *models.FinancialData
	Sections     []models.DimensionSection
	History      []models.ConversationTurn
	GeneralOnly  bool // degrade to a general answer when company data is unavailable
}

// BuildContext assembles the single word-budgeted prompt for the answer
// stream. All classification fields are defined by the time this runs.
func BuildContext(in ContextInput) string {
	var sb strings.Builder

	switch {
	case in.GeneralOnly || in.QuestionType == models.QuestionTypeGeneralFinance:
		writeGeneralContext(&sb, in)
	case in.QuestionType == models.QuestionTypeCompanyGeneral:
		writeCompanyGeneralContext(&sb, in)
	default:
		writeCompanyFinanceContext(&sb, in)
	}

	if h := historyExcerpt(in.History); h != "" {
		sb.WriteString("\n")
		sb.WriteString(h)
	}

	sb.WriteString("\n")
	sb.WriteString(citationInstructions(in.Financial))

	return sb.String()
}

func writeGeneralContext(sb *strings.Builder, in ContextInput) {
	fmt.Fprintf(sb, `Please explain this financial concept or answer this question:

%s

Give a short answer in less than %d words.
Break the answer into different paragraphs for better readability.
In the last paragraph, give an example of how this concept is used in a real-world situation.
`, in.Question, baseWordBudget)
}

func writeCompanyGeneralContext(sb *strings.Builder, in ContextInput) {
	company := strings.ToUpper(in.Ticker)
	if in.Financial != nil && in.Financial.Fundamental != nil && in.Financial.Fundamental.Name != "" {
		company = fmt.Sprintf("%s (ticker: %s)", in.Financial.Fundamental.Name, strings.ToUpper(in.Ticker))
	}
	fmt.Fprintf(sb, `You are an expert about a business. Answer the following question about %s:
%s

Keep the response concise in under %d words. Do not repeat points or facts. Connect the facts to a compelling story.
Break the answer into different paragraphs for better readability.
`, company, in.Question, baseWordBudget)
}

func writeCompanyFinanceContext(sb *strings.Builder, in ContextInput) {
	fmt.Fprintf(sb, `You are a seasoned financial analyst. Your task is to provide an insightful, non-repetitive analysis for the following question.

Question: %s
Company: %s
`, in.Question, strings.ToUpper(in.Ticker))

	writeFinancialData(sb, in.Financial)

	if in.Data == models.DataRequirementDetailed {
		writeDetailedInstructions(sb, in.Sections)
		return
	}

	fmt.Fprintf(sb, `
This question requires basic financial metrics. Use the fundamental data provided to answer the question.
Focus on key metrics like market cap, P/E ratio, basic profitability, and market performance.
Keep the response concise (under %d words) but insightful.
`, baseWordBudget)
}

// writeDetailedInstructions lays out the summary-plus-two-sections
// structure with per-section word budgets and focus points.
func writeDetailedInstructions(sb *strings.Builder, sections []models.DimensionSection) {
	total := summaryWordBudget + len(sections)*sectionWordBudget

	sb.WriteString("\n**Instructions for your analysis:**\n\n")
	sb.WriteString("Structure your response with EXACTLY 3 sections in this order:\n\n")
	fmt.Fprintf(sb, "(~%d words) Provide a concise overview that previews the key findings from the two sections below. Highlight the most important takeaway.\n", summaryWordBudget)

	for _, section := range sections {
		fmt.Fprintf(sb, "\n**%s**\n\n(~%d words) Focus on:\n", section.Title, sectionWordBudget)
		for _, point := range section.FocusPoints {
			fmt.Fprintf(sb, "- %s\n", point)
		}
	}

	fmt.Fprintf(sb, `
**Formatting Guidelines:**
- Start each section with its title in markdown bold: **Section Title**
- Add a blank line after the title before starting the paragraph
- Each section should be a cohesive paragraph (or 2-3 short paragraphs)
- Use numbers strategically - select 2-4 key figures per section that best support your analysis
- Use the largest appropriate unit for numbers (e.g., "$1.5 billion" not "$1,500 million")
- Keep the total response under %d words

**Analysis Rules:**
- PRIORITIZE REASONING: Explain WHY trends occur, WHAT drives the changes, and WHAT it means for the business
- IDENTIFY DRIVERS: Explain the underlying business factors, market conditions, or strategic decisions behind the numbers
- NO DUPLICATION: Each sentence should add new information
`, total)
}

// writeFinancialData renders fetched data into the prompt, omitting any
// material that was unavailable. Never fabricates missing data.
func writeFinancialData(sb *strings.Builder, data *models.FinancialData) {
	if data == nil {
		return
	}

	if f := data.Fundamental; f != nil {
		sb.WriteString("\nCompany Fundamental Data:\n")
		fmt.Fprintf(sb, "- Name: %s\n", f.Name)
		if f.Sector != "" {
			fmt.Fprintf(sb, "- Sector: %s / %s\n", f.Sector, f.Industry)
		}
		if f.MarketCap > 0 {
			fmt.Fprintf(sb, "- Market Cap: %.0f %s\n", f.MarketCap, f.Currency)
		}
		if f.PERatio != 0 {
			fmt.Fprintf(sb, "- P/E Ratio: %.2f\n", f.PERatio)
		}
		if f.EPS != 0 {
			fmt.Fprintf(sb, "- EPS: %.2f\n", f.EPS)
		}
		if f.DividendYield != 0 {
			fmt.Fprintf(sb, "- Dividend Yield: %.4f\n", f.DividendYield)
		}
		if f.Description != "" {
			fmt.Fprintf(sb, "- About: %s\n", f.Description)
		}
	}

	writeStatements(sb, "Annual Financial Statements", data.Annual)
	writeStatements(sb, "Quarterly Financial Statements", data.Quarterly)
}

func writeStatements(sb *strings.Builder, heading string, statements []models.Statement) {
	if len(statements) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", heading)
	for _, stmt := range statements {
		fmt.Fprintf(sb, "- Period ending %s: revenue %.0f, gross profit %.0f, operating income %.0f, net income %.0f",
			stmt.Date, stmt.TotalRevenue, stmt.GrossProfit, stmt.OperatingIncome, stmt.NetIncome)
		if stmt.TotalAssets > 0 {
			fmt.Fprintf(sb, ", total assets %.0f, total liabilities %.0f", stmt.TotalAssets, stmt.TotalLiab)
		}
		if stmt.FreeCashFlow != 0 {
			fmt.Fprintf(sb, ", free cash flow %.0f", stmt.FreeCashFlow)
		}
		sb.WriteString("\n")
	}
}

// citationInstructions tells the model how to cite inline and lists the
// filing URLs it may cite.
func citationInstructions(data *models.FinancialData) string {
	var sb strings.Builder

	sb.WriteString(`**Source Citation Rules (follow strictly):**
1. Cite sources inline as markdown links immediately after the text they support: [Source Name](https://full-url)
2. For SEC filings: use the EXACT URLs from the "Available Source URLs" section below.
3. NEVER invent or guess URLs. Only cite URLs explicitly provided in context.
4. Separate paragraphs with a blank line.
`)

	links := SourceLinks(data)
	if len(links) > 0 {
		sb.WriteString("\n**Available Source URLs (use these EXACT URLs when citing):**\n")
		for _, link := range links {
			fmt.Fprintf(&sb, "- %s: %s\n", link.Name, link.URL)
		}
	}

	return sb.String()
}

// SourceLinks collects the named filing URLs carried by fetched
// statements, deduplicated, most recent first.
func SourceLinks(data *models.FinancialData) []models.SourceLink {
	if data == nil {
		return nil
	}
	var links []models.SourceLink
	seen := make(map[string]struct{})
	for _, stmt := range append(append([]models.Statement{}, data.Annual...), data.Quarterly...) {
		if stmt.FilingURL == "" || stmt.FilingName == "" {
			continue
		}
		if _, dup := seen[stmt.FilingName]; dup {
			continue
		}
		seen[stmt.FilingName] = struct{}{}
		links = append(links, models.SourceLink{Name: stmt.FilingName, URL: stmt.FilingURL})
	}
	return links
}
