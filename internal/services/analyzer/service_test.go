package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// detailedFlowGemini answers every pipeline prompt for a company-specific
// detailed question about AAPL.
func detailedFlowGemini(answer string) *mockGemini {
	return &mockGemini{
		respond: func(prompt string, _ interfaces.GenerateParams) (string, error) {
			switch {
			case strings.Contains(prompt, "Classify the following question"):
				return "COMPANY_SPECIFIC_FINANCE", nil
			case strings.Contains(prompt, "NONE, BASIC, or DETAILED"):
				return "DETAILED", nil
			case strings.Contains(prompt, "period_type"):
				return `{"period_type": "annual", "num_periods": 3}`, nil
			case strings.Contains(prompt, "most relevant sections"):
				return `{"sections": [
					{"title": "Revenue Trajectory", "focus_points": ["Topline growth", "Segment mix"]},
					{"title": "Profitability", "focus_points": ["Net income", "Margin trend"]}
				]}`, nil
			case strings.Contains(prompt, "follow-up questions"):
				return "How do margins compare to peers?\nIs growth sustainable?\nWhat about services revenue?", nil
			default:
				return answer, nil
			}
		},
	}
}

func newTestService(gemini *mockGemini, client *mockDataClient, conversations *mockConversationStore) *Service {
	return NewService(gemini, client, newMockFinancialStore(), conversations, common.NewDefaultConfig(), common.NewSilentLogger())
}

func TestAnswer_DetailedFlow(t *testing.T) {
	answer := "Revenue grew steadily [AAPL 10-K 2024](https://sec.gov/aapl-2024).\n\nThe outlook remains solid."
	gemini := detailedFlowGemini(answer)
	client := &mockDataClient{
		fundamental: &models.Fundamental{Ticker: "AAPL", Name: "Apple Inc"},
		annual: []models.Statement{
			{Date: "2024-09-28", FiscalYear: "2024", TotalRevenue: 391_035, FilingName: "AAPL 10-K 2024", FilingURL: "https://sec.gov/aapl-2024"},
		},
	}
	conversations := newMockConversationStore()
	svc := newTestService(gemini, client, conversations)

	sink := &collectSink{}
	req := &models.AnalyzeRequest{Question: "What was Apple's revenue trend over the last 3 years?", Ticker: "AAPL", ConversationID: "conv-1"}
	if err := svc.Answer(context.Background(), req, sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if len(sink.events) == 0 || sink.events[0].Type != models.AnswerEventConversation {
		t.Fatal("first event must announce the conversation id")
	}
	if sink.events[0].Body != "conv-1" {
		t.Errorf("conversation id = %q", sink.events[0].Body)
	}

	if got := sink.answerText(); got != answer {
		t.Errorf("answer = %q, want %q", got, answer)
	}

	if n := len(sink.ofType(models.AnswerEventThinkingStatus)); n < 3 {
		t.Errorf("thinking_status events = %d, want at least 3", n)
	}

	grouped := sink.ofType(models.AnswerEventSourcesGrouped)
	if len(grouped) != 1 {
		t.Fatalf("sources_grouped events = %d, want exactly 1", len(grouped))
	}
	if len(grouped[0].Sources) != 1 {
		t.Fatalf("sources = %+v", grouped[0].Sources)
	}
	src := grouped[0].Sources[0]
	if src.Name != "AAPL 10-K 2024" || src.URL != "https://sec.gov/aapl-2024" {
		t.Errorf("source = %+v", src)
	}
	if len(src.ParagraphIndices) != 1 || src.ParagraphIndices[0] != 0 {
		t.Errorf("paragraph indices = %v, want [0]", src.ParagraphIndices)
	}

	// sources_grouped comes after the last answer chunk
	lastAnswer, groupedAt := -1, -1
	for i, e := range sink.events {
		switch e.Type {
		case models.AnswerEventAnswer:
			lastAnswer = i
		case models.AnswerEventSourcesGrouped:
			groupedAt = i
		}
	}
	if groupedAt < lastAnswer {
		t.Error("sources_grouped must follow the final answer chunk")
	}

	if n := len(sink.ofType(models.AnswerEventRelatedQuestion)); n != 3 {
		t.Errorf("related questions = %d, want 3", n)
	}

	if conversations.setMetaCalls != 1 {
		t.Errorf("meta writes = %d, want 1", conversations.setMetaCalls)
	}
	meta := conversations.meta["conv-1"]
	if meta == nil || meta.LastQuestionType != models.QuestionTypeCompanySpecificFinance || meta.LastTicker != "AAPL" {
		t.Errorf("meta = %+v", meta)
	}

	turns := conversations.history["conv-1"]
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("history = %+v", turns)
	}
}

func TestAnswer_GeneratesConversationID(t *testing.T) {
	gemini := &mockGemini{
		respond: func(prompt string, _ interfaces.GenerateParams) (string, error) {
			return "GENERAL_FINANCE", nil
		},
	}
	svc := newTestService(gemini, &mockDataClient{}, newMockConversationStore())

	sink := &collectSink{}
	req := &models.AnalyzeRequest{Question: "What is a P/E ratio?"}
	if err := svc.Answer(context.Background(), req, sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if sink.events[0].Type != models.AnswerEventConversation || sink.events[0].Body == "" {
		t.Error("expected a generated conversation id in the first event")
	}
}

func TestAnswer_StreamFailureEmitsErrorAndSkipsMeta(t *testing.T) {
	gemini := detailedFlowGemini("")
	gemini.stream = func(prompt string, onChunk func(string) error, _ interfaces.GenerateParams) error {
		if strings.Contains(prompt, "most relevant sections") {
			return errors.New("model unavailable")
		}
		if err := onChunk("partial answer"); err != nil {
			return err
		}
		return errors.New("stream interrupted")
	}
	conversations := newMockConversationStore()
	svc := newTestService(gemini, &mockDataClient{fundamental: &models.Fundamental{Ticker: "AAPL"}}, conversations)

	sink := &collectSink{}
	req := &models.AnalyzeRequest{Question: "What was Apple's revenue last year?", Ticker: "AAPL", ConversationID: "conv-err"}
	if err := svc.Answer(context.Background(), req, sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	last := sink.events[len(sink.events)-1]
	if last.Type != models.AnswerEventError {
		t.Errorf("last event = %s, want error", last.Type)
	}
	if len(sink.ofType(models.AnswerEventSourcesGrouped)) != 0 {
		t.Error("failed stream must not emit sources_grouped")
	}
	if conversations.setMetaCalls != 0 {
		t.Error("meta must stay unwritten after a failed stream")
	}
	if len(conversations.history["conv-err"]) != 0 {
		t.Error("history must stay unwritten after a failed stream")
	}
}

func TestAnswer_DegradesWhenNoDataAvailable(t *testing.T) {
	var answerPrompt string
	gemini := detailedFlowGemini("A general view of the company's finances.")
	inner := gemini.respond
	gemini.respond = func(prompt string, params interfaces.GenerateParams) (string, error) {
		text, err := inner(prompt, params)
		if text == "A general view of the company's finances." {
			answerPrompt = prompt
		}
		return text, err
	}
	client := &mockDataClient{err: errors.New("upstream down")}
	svc := newTestService(gemini, client, newMockConversationStore())

	sink := &collectSink{}
	req := &models.AnalyzeRequest{Question: "What was Apple's revenue trend over the last 3 years?", Ticker: "AAPL", ConversationID: "conv-2"}
	if err := svc.Answer(context.Background(), req, sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if strings.Contains(answerPrompt, "seasoned financial analyst") {
		t.Error("unavailable data must degrade to a general prompt")
	}
	if sink.answerText() == "" {
		t.Error("degraded request still streams an answer")
	}
	if len(sink.ofType(models.AnswerEventSourcesGrouped)) != 1 {
		t.Error("sources_grouped is still emitted once, even when empty")
	}
}

func TestAnswer_AmbiguousFollowUpSkipsClassification(t *testing.T) {
	gemini := &mockGemini{
		respond: func(prompt string, _ interfaces.GenerateParams) (string, error) {
			if strings.Contains(prompt, "Classify the following question") ||
				strings.Contains(prompt, "NONE, BASIC, or DETAILED") ||
				strings.Contains(prompt, "period_type") {
				t.Errorf("classifier invoked for ambiguous follow-up:\n%s", prompt)
			}
			if strings.Contains(prompt, "follow-up questions") {
				return "Another question?", nil
			}
			return "The company continues to execute well.", nil
		},
	}
	conversations := newMockConversationStore()
	conversations.meta["conv-3"] = &models.ConversationMeta{
		ConversationID:      "conv-3",
		LastQuestionType:    models.QuestionTypeCompanyGeneral,
		LastTicker:          "AAPL",
		LastDataRequirement: models.DataRequirementNone,
	}
	svc := newTestService(gemini, &mockDataClient{}, conversations)

	sink := &collectSink{}
	req := &models.AnalyzeRequest{Question: "thanks, what else?", Ticker: "AAPL", ConversationID: "conv-3"}
	if err := svc.Answer(context.Background(), req, sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if sink.answerText() == "" {
		t.Error("expected a streamed answer on the reuse path")
	}
	if conversations.setMetaCalls != 1 {
		t.Errorf("meta writes = %d, want 1 (persisted even on reuse)", conversations.setMetaCalls)
	}
}

func TestAnswer_NoTickerNeverForcesCompanyAnalysis(t *testing.T) {
	var answerPrompt string
	gemini := &mockGemini{
		respond: func(prompt string, _ interfaces.GenerateParams) (string, error) {
			switch {
			case strings.Contains(prompt, "Classify the following question"):
				return "COMPANY_SPECIFIC_FINANCE", nil
			case strings.Contains(prompt, "NONE, BASIC, or DETAILED"):
				return "BASIC", nil
			case strings.Contains(prompt, "follow-up questions"):
				return "", nil
			default:
				answerPrompt = prompt
				return "General answer.", nil
			}
		},
	}
	client := &mockDataClient{}
	svc := newTestService(gemini, client, newMockConversationStore())

	sink := &collectSink{}
	req := &models.AnalyzeRequest{Question: "How is the iPhone maker doing financially?", Ticker: "undefined"}
	if err := svc.Answer(context.Background(), req, sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if client.fundCalls != 0 {
		t.Errorf("data fetched %d times without a real ticker, want 0", client.fundCalls)
	}
	if strings.Contains(answerPrompt, "seasoned financial analyst") {
		t.Error("reserved ticker token must not produce company-forcing instructions")
	}
}
