package analyzer

import (
	"context"
	"strings"
	"unicode"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// ambiguousWordLimit is the maximum word count for a question to qualify
// as an ambiguous follow-up.
const ambiguousWordLimit = 6

// metricKeywords are financial terms whose presence means a question is
// specific enough to re-classify rather than route stickily.
var metricKeywords = map[string]struct{}{
	"revenue":   {},
	"revenues":  {},
	"profit":    {},
	"profits":   {},
	"margin":    {},
	"margins":   {},
	"income":    {},
	"earnings":  {},
	"eps":       {},
	"cash":      {},
	"debt":      {},
	"ratio":     {},
	"dividend":  {},
	"dividends": {},
	"valuation": {},
	"growth":    {},
	"guidance":  {},
	"forecast":  {},
	"quarterly": {},
	"annual":    {},
}

// Router decides whether a turn can reuse the previous classification
// instead of re-invoking the classifier.
type Router struct {
	classifier    *Classifier
	conversations interfaces.ConversationStore
	logger        *common.Logger
}

// NewRouter creates a conversation router
func NewRouter(classifier *Classifier, conversations interfaces.ConversationStore, logger *common.Logger) *Router {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Router{classifier: classifier, conversations: conversations, logger: logger}
}

// isAmbiguousFollowUp reports whether the question is too vague to
// classify on its own: short, no ticker-shaped token, no metric keyword.
func isAmbiguousFollowUp(question string) bool {
	words := strings.Fields(question)
	if len(words) == 0 || len(words) > ambiguousWordLimit {
		return false
	}
	for _, word := range words {
		cleaned := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if cleaned == "" {
			continue
		}
		if _, metric := metricKeywords[strings.ToLower(cleaned)]; metric {
			return false
		}
		if looksLikeTicker(cleaned) {
			return false
		}
	}
	return true
}

// looksLikeTicker reports whether a token reads as an exchange symbol:
// 1-5 characters, all uppercase letters. Single-letter common words are
// still treated as tickers since "I" and "A" are listed symbols.
func looksLikeTicker(token string) bool {
	if len(token) < 1 || len(token) > 5 {
		return false
	}
	for _, r := range token {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// Resolve returns the classification to use for this turn. When the
// question is an ambiguous follow-up, stored metadata exists, and the
// ticker is unchanged from the prior turn, the stored classification is
// reused and all three classifier calls are skipped. reused reports which
// path was taken.
func (r *Router) Resolve(ctx context.Context, conversationID, question, ticker string, history []models.ConversationTurn) (classification models.Classification, reused bool) {
	if conversationID != "" && isAmbiguousFollowUp(question) {
		meta, err := r.conversations.GetMeta(ctx, conversationID)
		if err == nil && meta.LastQuestionType != "" && meta.LastTicker == ticker {
			r.logger.Debug().
				Str("conversation_id", conversationID).
				Str("question_type", string(meta.LastQuestionType)).
				Msg("Ambiguous follow-up, reusing stored classification")
			// All three classifier calls are skipped on this path. Meta
			// does not record the period, so the annual default applies.
			classification = models.Classification{
				QuestionType:    meta.LastQuestionType,
				DataRequirement: meta.LastDataRequirement,
				PeriodSpec:      models.DefaultPeriodSpec(),
			}
			classification.PeriodRequirement = classification.PeriodSpec.Period
			return classification, true
		}
		if err != nil && err != interfaces.ErrNotFound {
			r.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to read conversation meta")
		}
	}

	classification.QuestionType = r.classifier.ClassifyQuestionType(ctx, question, ticker, history)
	classification.DataRequirement = r.classifier.ClassifyDataRequirement(ctx, question, ticker, history)
	classification.PeriodSpec = models.DefaultPeriodSpec()
	if classification.DataRequirement == models.DataRequirementDetailed {
		classification.PeriodSpec = r.classifier.ClassifyPeriodRequirement(ctx, question, ticker)
	}
	classification.PeriodRequirement = classification.PeriodSpec.Period
	return classification, false
}

// Persist writes the resolved classification back to conversation
// metadata. The write is unconditional so stickiness stays correct even
// when the classification came from fallbacks.
func (r *Router) Persist(ctx context.Context, conversationID, ticker string, classification models.Classification) {
	if conversationID == "" {
		return
	}
	meta := &models.ConversationMeta{
		ConversationID:      conversationID,
		LastQuestionType:    classification.QuestionType,
		LastTicker:          ticker,
		LastDataRequirement: classification.DataRequirement,
	}
	if err := r.conversations.SetMeta(ctx, meta); err != nil {
		r.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to persist conversation meta")
	}
}
