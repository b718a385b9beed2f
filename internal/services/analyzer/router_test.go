package analyzer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

func TestIsAmbiguousFollowUp(t *testing.T) {
	ambiguous := []string{
		"what about now?",
		"and last year?",
		"tell me more",
		"why?",
	}
	for _, q := range ambiguous {
		if !isAmbiguousFollowUp(q) {
			t.Errorf("%q should be ambiguous", q)
		}
	}

	specific := []string{
		"",
		"what was the revenue last quarter?", // metric keyword
		"how is AAPL doing?",                 // ticker-shaped token
		"what about TSLA?",
		"any dividends?",
		"can you explain how compound interest works over long periods", // too long
	}
	for _, q := range specific {
		if isAmbiguousFollowUp(q) {
			t.Errorf("%q should not be ambiguous", q)
		}
	}
}

func TestLooksLikeTicker(t *testing.T) {
	for _, token := range []string{"A", "MSFT", "GOOGL"} {
		if !looksLikeTicker(token) {
			t.Errorf("%q should look like a ticker", token)
		}
	}
	for _, token := range []string{"", "apple", "Tesla", "TOOLONG", "BRK2"} {
		if looksLikeTicker(token) {
			t.Errorf("%q should not look like a ticker", token)
		}
	}
}

func newTestRouter(gemini *mockGemini, conversations *mockConversationStore) *Router {
	classifier := NewClassifier(gemini, time.Second, nil)
	return NewRouter(classifier, conversations, nil)
}

func TestRouterResolve_ReusesStoredClassification(t *testing.T) {
	gemini := &mockGemini{}
	conversations := newMockConversationStore()
	conversations.meta["conv-1"] = &models.ConversationMeta{
		ConversationID:      "conv-1",
		LastQuestionType:    models.QuestionTypeCompanyGeneral,
		LastTicker:          "AAPL",
		LastDataRequirement: models.DataRequirementNone,
	}
	router := newTestRouter(gemini, conversations)

	classification, reused := router.Resolve(context.Background(), "conv-1", "tell me more", "AAPL", nil)

	if !reused {
		t.Fatal("expected stored classification to be reused")
	}
	if gemini.callCount() != 0 {
		t.Errorf("classifier called %d times on reuse path, want 0", gemini.callCount())
	}
	if classification.QuestionType != models.QuestionTypeCompanyGeneral {
		t.Errorf("question type = %s", classification.QuestionType)
	}
	if classification.PeriodRequirement != models.PeriodRequirementAnnual {
		t.Errorf("period = %s, want annual default", classification.PeriodRequirement)
	}
}

func TestRouterResolve_TickerChangeForcesReclassification(t *testing.T) {
	gemini := &mockGemini{
		respond: func(_ string, _ interfaces.GenerateParams) (string, error) {
			return "GENERAL_FINANCE", nil
		},
	}
	conversations := newMockConversationStore()
	conversations.meta["conv-1"] = &models.ConversationMeta{
		ConversationID:   "conv-1",
		LastQuestionType: models.QuestionTypeCompanyGeneral,
		LastTicker:       "AAPL",
	}
	router := newTestRouter(gemini, conversations)

	_, reused := router.Resolve(context.Background(), "conv-1", "tell me more", "MSFT", nil)

	if reused {
		t.Error("ticker change must not reuse prior classification")
	}
	if gemini.callCount() == 0 {
		t.Error("expected classifier calls")
	}
}

func TestRouterResolve_SpecificQuestionAlwaysClassifies(t *testing.T) {
	gemini := &mockGemini{
		respond: func(prompt string, _ interfaces.GenerateParams) (string, error) {
			return "DETAILED", nil
		},
	}
	conversations := newMockConversationStore()
	conversations.meta["conv-1"] = &models.ConversationMeta{
		ConversationID:   "conv-1",
		LastQuestionType: models.QuestionTypeCompanyGeneral,
		LastTicker:       "AAPL",
	}
	router := newTestRouter(gemini, conversations)

	question := "can you walk me through how the operating margin has changed over the past three years"
	_, reused := router.Resolve(context.Background(), "conv-1", question, "AAPL", nil)

	if reused {
		t.Error("long specific question must be freshly classified")
	}
}

func TestRouterResolve_NoConversationID(t *testing.T) {
	gemini := &mockGemini{
		respond: func(_ string, _ interfaces.GenerateParams) (string, error) {
			return "GENERAL_FINANCE", nil
		},
	}
	router := newTestRouter(gemini, newMockConversationStore())

	_, reused := router.Resolve(context.Background(), "", "tell me more", "", nil)
	if reused {
		t.Error("reuse requires a conversation id")
	}
}

func TestRouterResolve_PeriodClassifiedOnlyForDetailed(t *testing.T) {
	var periodCalls int
	gemini := &mockGemini{
		respond: func(prompt string, _ interfaces.GenerateParams) (string, error) {
			if strings.Contains(prompt, "period_type") {
				periodCalls++
				return `{"period_type": "quarterly", "num_periods": 4}`, nil
			}
			if strings.Contains(prompt, "NONE, BASIC, or DETAILED") {
				return "BASIC", nil
			}
			return "COMPANY_SPECIFIC_FINANCE", nil
		},
	}
	router := newTestRouter(gemini, newMockConversationStore())

	classification, _ := router.Resolve(context.Background(), "", "What is the market cap of Apple stock today", "AAPL", nil)

	if periodCalls != 0 {
		t.Errorf("period classified %d times for BASIC, want 0", periodCalls)
	}
	if classification.PeriodRequirement != models.PeriodRequirementAnnual {
		t.Errorf("period = %s, want annual default", classification.PeriodRequirement)
	}
}

func TestRouterPersist(t *testing.T) {
	conversations := newMockConversationStore()
	router := newTestRouter(&mockGemini{}, conversations)

	classification := models.Classification{
		QuestionType:    models.QuestionTypeCompanySpecificFinance,
		DataRequirement: models.DataRequirementDetailed,
	}
	router.Persist(context.Background(), "conv-9", "AAPL", classification)

	meta := conversations.meta["conv-9"]
	if meta == nil {
		t.Fatal("expected meta to be written")
	}
	if meta.LastQuestionType != models.QuestionTypeCompanySpecificFinance || meta.LastTicker != "AAPL" {
		t.Errorf("meta = %+v", meta)
	}

	// No conversation id means nothing to persist
	router.Persist(context.Background(), "", "AAPL", classification)
	if len(conversations.meta) != 1 {
		t.Errorf("meta records = %d, want 1", len(conversations.meta))
	}
}
