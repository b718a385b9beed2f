package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// state names one phase of a request's lifecycle
type state string

const (
	stateClassifying     state = "classifying"
	statePlanning        state = "planning"
	stateAnalyzing       state = "analyzing"
	stateContextBuilding state = "context_building"
	stateStreaming       state = "streaming"
	stateDone            state = "done"
	stateFailed          state = "failed"
)

// Service orchestrates one answer per request: classify (or reuse), plan
// and fetch data concurrently with outline generation, build a budgeted
// prompt, stream the answer while mapping paragraph sources, then persist
// conversation state.
type Service struct {
	gemini        interfaces.GeminiClient
	classifier    *Classifier
	router        *Router
	dimensions    *DimensionAnalyzer
	optimizer     *DataOptimizer
	conversations interfaces.ConversationStore
	historyPairs  int
	logger        *common.Logger
}

var _ interfaces.AnalyzerService = (*Service)(nil)

// NewService creates the analyzer service
func NewService(
	gemini interfaces.GeminiClient,
	financialClient interfaces.FinancialDataClient,
	financialStore interfaces.FinancialStore,
	conversations interfaces.ConversationStore,
	config *common.Config,
	logger *common.Logger,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	classifier := NewClassifier(gemini, config.Analyzer.GetClassifyTimeout(), logger)
	return &Service{
		gemini:        gemini,
		classifier:    classifier,
		router:        NewRouter(classifier, conversations, logger),
		dimensions:    NewDimensionAnalyzer(gemini, config.Analyzer.GetDimensionTimeout(), logger),
		optimizer:     NewDataOptimizer(financialClient, financialStore, config.Analyzer.GetFetchTimeout(), logger),
		conversations: conversations,
		historyPairs:  config.Analyzer.GetHistoryPairs(),
		logger:        logger,
	}
}

func (s *Service) transition(conversationID string, to state) {
	s.logger.Debug().Str("conversation_id", conversationID).Str("state", string(to)).Msg("Request state")
}

// Answer handles one question end to end, streaming events to the sink.
// It returns only after the terminal event has been emitted. Conversation
// metadata is written only on success, so a failed request is retry-safe.
func (s *Service) Answer(ctx context.Context, req *models.AnalyzeRequest, sink interfaces.EventSink) error {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventConversation, Body: conversationID}); err != nil {
		return err
	}

	ticker, hasTicker := NormalizeTicker(req.Ticker)

	history, err := s.conversations.GetHistory(ctx, conversationID, s.historyPairs)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to load conversation history")
		history = nil
	}

	// CLASSIFYING
	s.transition(conversationID, stateClassifying)
	if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventThinkingStatus, Body: "Analyzing question to determine required data..."}); err != nil {
		return err
	}

	classification, reused := s.router.Resolve(ctx, conversationID, req.Question, ticker, history)
	s.logger.Info().
		Str("conversation_id", conversationID).
		Str("question_type", string(classification.QuestionType)).
		Str("data_requirement", string(classification.DataRequirement)).
		Str("period_requirement", string(classification.PeriodRequirement)).
		Bool("reused", reused).
		Msg("Question classified")

	// PLANNING and, for detailed answers, ANALYZING in parallel
	plan := BuildFetchPlan(classification.DataRequirement, classification.PeriodRequirement)

	var financial *models.FinancialData
	sections := FallbackSections()

	detailed := classification.DataRequirement == models.DataRequirementDetailed
	if detailed {
		if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventThinkingStatus, Body: "Identifying relevant financial periods..."}); err != nil {
			return err
		}
	}

	switch {
	case detailed && hasTicker:
		s.transition(conversationID, statePlanning)
		s.transition(conversationID, stateAnalyzing)
		if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventThinkingStatus, Body: "Determining key analysis dimensions..."}); err != nil {
			return err
		}

		// Both branches complete (or fall back) before context assembly;
		// neither returns an error.
		var generated []models.DimensionSection
		var generatedOK bool
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			generated, generatedOK = s.dimensions.Analyze(gctx, req.Question, ticker)
			return nil
		})
		g.Go(func() error {
			financial = s.optimizer.Execute(gctx, ticker, plan, classification.PeriodSpec)
			return nil
		})
		_ = g.Wait()

		if generatedOK {
			sections = generated
		}
	case hasTicker && plan.Fundamental:
		s.transition(conversationID, statePlanning)
		financial = s.optimizer.Execute(ctx, ticker, plan, classification.PeriodSpec)
	}

	// CONTEXT_BUILDING
	s.transition(conversationID, stateContextBuilding)
	if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventThinkingStatus, Body: "Analyzing data and preparing insights..."}); err != nil {
		return err
	}

	// A company-specific question with no retrievable data degrades to a
	// general answer rather than refusing.
	generalOnly := false
	if classification.QuestionType == models.QuestionTypeCompanySpecificFinance &&
		classification.DataRequirement != models.DataRequirementNone &&
		financial.Empty() {
		s.logger.Warn().Str("ticker", ticker).Msg("No financial data available, degrading to general answer")
		generalOnly = true
	}
	if !hasTicker && classification.QuestionType != models.QuestionTypeGeneralFinance {
		generalOnly = true
	}

	prompt := BuildContext(ContextInput{
		Question:     req.Question,
		Ticker:       ticker,
		QuestionType: classification.QuestionType,
		Data:         classification.DataRequirement,
		Financial:    financial,
		Sections:     sections,
		History:      history,
		GeneralOnly:  generalOnly,
	})

	// STREAMING
	s.transition(conversationID, stateStreaming)
	mapper := NewSourceMapper(filingLookup(financial))
	var answer strings.Builder

	streamErr := s.gemini.GenerateTextStream(ctx, prompt, func(chunk string) error {
		mapper.Feed(chunk)
		answer.WriteString(chunk)
		return sink.Emit(models.AnswerEvent{Type: models.AnswerEventAnswer, Body: chunk})
	})
	if streamErr != nil {
		// Fatal for this request only. Meta stays unwritten so a retry
		// re-classifies cleanly.
		s.transition(conversationID, stateFailed)
		s.logger.Error().Err(streamErr).Str("conversation_id", conversationID).Msg("Answer stream failed")
		return sink.Emit(models.AnswerEvent{Type: models.AnswerEventError, Body: "Error during analysis. Please try again later."})
	}

	if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventSourcesGrouped, Sources: mapper.Finish()}); err != nil {
		return err
	}

	s.emitRelatedQuestions(ctx, req.Question, classification.QuestionType, sink)

	// DONE: persist routing meta and history
	s.transition(conversationID, stateDone)
	s.router.Persist(ctx, conversationID, ticker, classification)
	now := time.Now().UTC()
	if err := s.conversations.AppendTurns(ctx, conversationID,
		models.ConversationTurn{Role: "user", Content: req.Question, At: now},
		models.ConversationTurn{Role: "assistant", Content: answer.String(), At: now},
	); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to append conversation turns")
	}

	return nil
}

// emitRelatedQuestions suggests follow-ups after the answer. Failure is
// logged and never surfaced.
func (s *Service) emitRelatedQuestions(ctx context.Context, question string, questionType models.QuestionType, sink interfaces.EventSink) {
	financeFocused := questionType == models.QuestionTypeCompanySpecificFinance
	related, err := GenerateRelatedQuestions(ctx, s.gemini, question, financeFocused)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Related question generation failed")
		return
	}
	for _, q := range related {
		if err := sink.Emit(models.AnswerEvent{Type: models.AnswerEventRelatedQuestion, Body: q}); err != nil {
			return
		}
	}
}

// filingLookup maps bare filing names to their URLs so citations without
// a URL can be enriched during source mapping.
func filingLookup(data *models.FinancialData) map[string]string {
	links := SourceLinks(data)
	if len(links) == 0 {
		return nil
	}
	lookup := make(map[string]string, len(links))
	for _, link := range links {
		lookup[link.Name] = link.URL
	}
	return lookup
}
