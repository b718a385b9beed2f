// Package models defines data structures for Finsight
package models

import (
	"strings"
	"time"
)

// normalizeEnumToken trims whitespace, surrounding quotes, and trailing
// punctuation from a single-token model response and uppercases it.
func normalizeEnumToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimRight(s, ".,:;")
	return strings.ToUpper(strings.TrimSpace(s))
}

// QuestionType categorizes what kind of answer a question needs
type QuestionType string

const (
	QuestionTypeGeneralFinance         QuestionType = "GENERAL_FINANCE"
	QuestionTypeCompanyGeneral         QuestionType = "COMPANY_GENERAL"
	QuestionTypeCompanySpecificFinance QuestionType = "COMPANY_SPECIFIC_FINANCE"
)

// ParseQuestionType maps a raw model response to a QuestionType.
// Unknown values return GENERAL_FINANCE with ok=false.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch QuestionType(normalizeEnumToken(s)) {
	case QuestionTypeGeneralFinance:
		return QuestionTypeGeneralFinance, true
	case QuestionTypeCompanyGeneral:
		return QuestionTypeCompanyGeneral, true
	case QuestionTypeCompanySpecificFinance:
		return QuestionTypeCompanySpecificFinance, true
	default:
		return QuestionTypeGeneralFinance, false
	}
}

// DataRequirement governs how much financial data is fetched for an answer
type DataRequirement string

const (
	DataRequirementNone     DataRequirement = "NONE"
	DataRequirementBasic    DataRequirement = "BASIC"
	DataRequirementDetailed DataRequirement = "DETAILED"
)

// ParseDataRequirement maps a raw model response to a DataRequirement.
// Unknown values return NONE with ok=false.
func ParseDataRequirement(s string) (DataRequirement, bool) {
	switch DataRequirement(normalizeEnumToken(s)) {
	case DataRequirementNone:
		return DataRequirementNone, true
	case DataRequirementBasic:
		return DataRequirementBasic, true
	case DataRequirementDetailed:
		return DataRequirementDetailed, true
	default:
		return DataRequirementNone, false
	}
}

// PeriodRequirement selects which statement periods a detailed answer needs.
// Only meaningful when DataRequirement is DETAILED.
type PeriodRequirement string

const (
	PeriodRequirementAnnual    PeriodRequirement = "ANNUAL"
	PeriodRequirementQuarterly PeriodRequirement = "QUARTERLY"
	PeriodRequirementBoth      PeriodRequirement = "BOTH"
)

// ParsePeriodRequirement maps a raw model response to a PeriodRequirement.
// Unknown values return ANNUAL with ok=false.
func ParsePeriodRequirement(s string) (PeriodRequirement, bool) {
	switch PeriodRequirement(normalizeEnumToken(s)) {
	case PeriodRequirementAnnual:
		return PeriodRequirementAnnual, true
	case PeriodRequirementQuarterly:
		return PeriodRequirementQuarterly, true
	case PeriodRequirementBoth:
		return PeriodRequirementBoth, true
	default:
		return PeriodRequirementAnnual, false
	}
}

// PeriodSpec is a PeriodRequirement with optional hints about which
// specific periods the question refers to. At most one of Years, Quarters,
// or NumPeriods is set.
type PeriodSpec struct {
	Period     PeriodRequirement `json:"period"`
	Years      []int             `json:"years,omitempty"`
	Quarters   []string          `json:"quarters,omitempty"` // "YYYY-Q#" format
	NumPeriods int               `json:"num_periods,omitempty"`
}

// DefaultPeriodSpec is the fallback when period classification fails
func DefaultPeriodSpec() PeriodSpec {
	return PeriodSpec{Period: PeriodRequirementAnnual, NumPeriods: 3}
}

// Classification is the resolved routing decision for one question
type Classification struct {
	QuestionType      QuestionType      `json:"question_type"`
	DataRequirement   DataRequirement   `json:"data_requirement"`
	PeriodRequirement PeriodRequirement `json:"period_requirement"`
	PeriodSpec        PeriodSpec        `json:"period_spec"`
}

// FetchPlan is the minimum financial data to retrieve for a classification.
// Derived deterministically from (DataRequirement, PeriodRequirement) and
// never mutated independently.
type FetchPlan struct {
	Fundamental bool `json:"fundamental"`
	Annual      bool `json:"annual"`
	Quarterly   bool `json:"quarterly"`
}

// DimensionSection is one AI-generated topical subdivision of a detailed
// answer: a short title plus 2-4 focus points.
type DimensionSection struct {
	Title       string   `json:"title"`
	FocusPoints []string `json:"focus_points"`
}

// ConversationMeta records the last resolved classification for a
// conversation, enabling sticky routing of ambiguous follow-ups
type ConversationMeta struct {
	ConversationID      string          `json:"conversation_id" badgerhold:"key"`
	LastQuestionType    QuestionType    `json:"last_question_type"`
	LastTicker          string          `json:"last_ticker"`
	LastDataRequirement DataRequirement `json:"last_data_requirement"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ConversationTurn is one user or assistant message in a conversation
type ConversationTurn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ConversationHistory holds the ordered turns of one conversation
type ConversationHistory struct {
	ConversationID string             `json:"conversation_id" badgerhold:"key"`
	Turns          []ConversationTurn `json:"turns"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ParagraphSource maps one cited source to the answer paragraphs citing it.
// ParagraphIndices are append-only and deduplicated.
type ParagraphSource struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	ParagraphIndices []int  `json:"paragraph_indices"`
}

// AnswerEventType identifies one kind of streamed answer event
type AnswerEventType string

const (
	AnswerEventConversation    AnswerEventType = "conversation"
	AnswerEventThinkingStatus  AnswerEventType = "thinking_status"
	AnswerEventAnswer          AnswerEventType = "answer"
	AnswerEventSourcesGrouped  AnswerEventType = "sources_grouped"
	AnswerEventRelatedQuestion AnswerEventType = "related_question"
	AnswerEventError           AnswerEventType = "error"
)

// AnswerEvent is one ordered event in a streamed answer. Body carries the
// text payload; Sources is set only for sources_grouped events, which are
// emitted exactly once after the last answer chunk.
type AnswerEvent struct {
	Type    AnswerEventType   `json:"type"`
	Body    string            `json:"body,omitempty"`
	Sources []ParagraphSource `json:"sources,omitempty"`
}

// AnalyzeRequest is one incoming question
type AnalyzeRequest struct {
	Question       string `json:"question"`
	Ticker         string `json:"ticker,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}
