package analyzer

import (
	"context"
	"sync"

	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// --- Mock Gemini Client ---

type mockGemini struct {
	mu      sync.Mutex
	prompts []string

	// respond resolves a prompt to a response. nil means empty success.
	respond func(prompt string, params interfaces.GenerateParams) (string, error)

	// stream overrides streaming behavior. When nil, respond's text is
	// delivered as a single chunk.
	stream func(prompt string, onChunk func(string) error, params interfaces.GenerateParams) error
}

func (m *mockGemini) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}

func (m *mockGemini) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockGemini) GenerateText(_ context.Context, prompt string, opts ...interfaces.GenerateOption) (string, error) {
	m.record(prompt)
	params := applyOptions(opts)
	if m.respond == nil {
		return "", nil
	}
	return m.respond(prompt, params)
}

func (m *mockGemini) GenerateTextStream(_ context.Context, prompt string, onChunk func(chunk string) error, opts ...interfaces.GenerateOption) error {
	m.record(prompt)
	params := applyOptions(opts)
	if m.stream != nil {
		return m.stream(prompt, onChunk, params)
	}
	text := ""
	if m.respond != nil {
		var err error
		text, err = m.respond(prompt, params)
		if err != nil {
			return err
		}
	}
	if text == "" {
		return nil
	}
	return onChunk(text)
}

func applyOptions(opts []interfaces.GenerateOption) interfaces.GenerateParams {
	var params interfaces.GenerateParams
	for _, opt := range opts {
		opt(&params)
	}
	return params
}

// --- Mock Financial Data Client ---

type mockDataClient struct {
	fundamental  *models.Fundamental
	annual       []models.Statement
	quarterly    []models.Statement
	err          error
	fundCalls    int
	annualCalls  int
	quarterCalls int
}

func (m *mockDataClient) GetFundamental(_ context.Context, _ string) (*models.Fundamental, error) {
	m.fundCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.fundamental, nil
}

func (m *mockDataClient) GetAnnualStatements(_ context.Context, _ string) ([]models.Statement, error) {
	m.annualCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.annual, nil
}

func (m *mockDataClient) GetQuarterlyStatements(_ context.Context, _ string) ([]models.Statement, error) {
	m.quarterCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.quarterly, nil
}

// --- Mock Financial Store ---

type mockFinancialStore struct {
	fundamentals map[string]*models.Fundamental
	statements   map[string]*models.StatementSet
	savedFund    int
	savedStmts   int
}

func newMockFinancialStore() *mockFinancialStore {
	return &mockFinancialStore{
		fundamentals: make(map[string]*models.Fundamental),
		statements:   make(map[string]*models.StatementSet),
	}
}

func (m *mockFinancialStore) GetFundamental(_ context.Context, ticker string) (*models.Fundamental, error) {
	f, ok := m.fundamentals[ticker]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return f, nil
}

func (m *mockFinancialStore) SaveFundamental(_ context.Context, f *models.Fundamental) error {
	m.fundamentals[f.Ticker] = f
	m.savedFund++
	return nil
}

func (m *mockFinancialStore) GetStatements(_ context.Context, ticker string, period models.PeriodType) (*models.StatementSet, error) {
	set, ok := m.statements[models.StatementSetKey(ticker, period)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return set, nil
}

func (m *mockFinancialStore) SaveStatements(_ context.Context, set *models.StatementSet) error {
	m.statements[models.StatementSetKey(set.Ticker, set.Period)] = set
	m.savedStmts++
	return nil
}

// --- Mock Conversation Store ---

type mockConversationStore struct {
	meta         map[string]*models.ConversationMeta
	history      map[string][]models.ConversationTurn
	setMetaCalls int
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{
		meta:    make(map[string]*models.ConversationMeta),
		history: make(map[string][]models.ConversationTurn),
	}
}

func (m *mockConversationStore) GetMeta(_ context.Context, conversationID string) (*models.ConversationMeta, error) {
	meta, ok := m.meta[conversationID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return meta, nil
}

func (m *mockConversationStore) SetMeta(_ context.Context, meta *models.ConversationMeta) error {
	m.meta[meta.ConversationID] = meta
	m.setMetaCalls++
	return nil
}

func (m *mockConversationStore) GetHistory(_ context.Context, conversationID string, lastPairs int) ([]models.ConversationTurn, error) {
	turns := m.history[conversationID]
	if lastPairs > 0 && len(turns) > lastPairs*2 {
		turns = turns[len(turns)-lastPairs*2:]
	}
	return turns, nil
}

func (m *mockConversationStore) AppendTurns(_ context.Context, conversationID string, turns ...models.ConversationTurn) error {
	m.history[conversationID] = append(m.history[conversationID], turns...)
	return nil
}

// --- Event Sink ---

type collectSink struct {
	events []models.AnswerEvent
}

func (s *collectSink) Emit(event models.AnswerEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *collectSink) ofType(t models.AnswerEventType) []models.AnswerEvent {
	var out []models.AnswerEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *collectSink) answerText() string {
	text := ""
	for _, e := range s.ofType(models.AnswerEventAnswer) {
		text += e.Body
	}
	return text
}
