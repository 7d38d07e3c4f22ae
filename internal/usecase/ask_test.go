package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-site/internal/domain"
	"portfolio-site/internal/integrations/openai"
)

const testResume = `Harsh Pandey
Full-stack developer and B.Tech student.

Education
Indian Institute of Technology Mandi, CGPA 8.1

Projects
TradeX: real-time stock market tracker.`

type mockParams struct {
	vals map[string]string
	err  error
}

func (m *mockParams) GetParameter(_ context.Context, name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.vals[name]
	if !ok {
		return "", fmt.Errorf("param not found: %s", name)
	}
	return v, nil
}

type transientParams struct {
	*mockParams
	failOnce bool
}

func (p *transientParams) GetParameter(ctx context.Context, name string) (string, error) {
	if p.failOnce {
		p.failOnce = false
		return "", errors.New("temporary ssm failure")
	}
	return p.mockParams.GetParameter(ctx, name)
}

type mockLLM struct {
	answer    string
	err       error
	model     string
	captured  []domain.ChatMessage
	callCount int
}

func (m *mockLLM) Chat(_ context.Context, model string, msgs []domain.ChatMessage) (string, error) {
	m.callCount++
	m.model = model
	m.captured = msgs
	return m.answer, m.err
}

type mockState struct {
	history       []domain.Message
	turnCount     int
	historyErr    error
	turnCountErr  error
	saveErr       error
	saved         bool
	savedConvID   string
	savedQuestion string
	savedAnswer   string
	savedSources  int
	savedTurns    int
}

func (m *mockState) GetConversationTurnCount(_ context.Context, _ string) (int, error) {
	return m.turnCount, m.turnCountErr
}

func (m *mockState) GetHistory(_ context.Context, _ string, _ int) ([]domain.Message, error) {
	return m.history, m.historyErr
}

func (m *mockState) SaveCompletedTurn(_ context.Context, conversationID, question, answer string, sources, turns int) error {
	m.saved = true
	m.savedConvID = conversationID
	m.savedQuestion = question
	m.savedAnswer = answer
	m.savedSources = sources
	m.savedTurns = turns
	return m.saveErr
}

func defaultParams() *mockParams {
	return &mockParams{vals: map[string]string{
		"/prefix/resume":        testResume,
		"/prefix/pinned_prompt": "You are Harsh Pandey's AI Resume Assistant.",
		"/prefix/config/model":  "",
	}}
}

func scoped(inScope bool, answer string) *mockLLM {
	return &mockLLM{answer: fmt.Sprintf(`{"in_scope":%t,"answer":%q}`, inScope, answer)}
}

func newTestService(t *testing.T, p ParamGetter, llm LLMClient, s StateReadWriter) *AskService {
	t.Helper()
	svc, err := NewAskService(p, llm, s, AskConfig{ParamPrefix: "/prefix/"})
	require.NoError(t, err)
	return svc
}

func expectAskError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewAskService_ValidatesDependencies(t *testing.T) {
	cfg := AskConfig{ParamPrefix: "/prefix"}
	_, err := NewAskService(nil, &mockLLM{}, &mockState{}, cfg)
	require.Error(t, err)
	_, err = NewAskService(defaultParams(), nil, &mockState{}, cfg)
	require.Error(t, err)
	_, err = NewAskService(defaultParams(), &mockLLM{}, nil, cfg)
	require.Error(t, err)
	_, err = NewAskService(defaultParams(), &mockLLM{}, &mockState{}, AskConfig{ParamPrefix: " "})
	require.Error(t, err)
}

func TestNewAskService_Defaults(t *testing.T) {
	svc := newTestService(t, defaultParams(), &mockLLM{}, &mockState{})
	require.Equal(t, "/prefix", svc.cfg.ParamPrefix)
	require.Equal(t, DefaultModel, svc.cfg.Model)
	require.Equal(t, 300, svc.cfg.MaxQuestionLen)
	require.Equal(t, 10, svc.cfg.MaxTurns)
	require.Equal(t, 4, svc.cfg.TopK)
}

func TestAsk_HappyPath(t *testing.T) {
	state := &mockState{turnCount: 2}
	llm := scoped(true, "I study at IIT Mandi with a CGPA of 8.1.")
	svc := newTestService(t, defaultParams(), llm, state)

	out, err := svc.Ask(context.Background(), AskInput{Question: "  What is your CGPA?  ", ConversationID: "conv-1"})
	require.NoError(t, err)
	require.Equal(t, "I study at IIT Mandi with a CGPA of 8.1.", out.Answer)
	require.Equal(t, "conv-1", out.ConversationID)
	require.Equal(t, DefaultModel, llm.model)

	require.True(t, state.saved)
	require.Equal(t, "conv-1", state.savedConvID)
	require.Equal(t, "What is your CGPA?", state.savedQuestion)
	require.Equal(t, 3, state.savedTurns)
	require.Positive(t, state.savedSources)
}

func TestAsk_PromptCarriesRelevantExcerpt(t *testing.T) {
	llm := scoped(true, "ok")
	svc := newTestService(t, defaultParams(), llm, &mockState{})

	_, err := svc.Ask(context.Background(), AskInput{Question: "What is your CGPA?"})
	require.NoError(t, err)
	require.Len(t, llm.captured, 3)
	require.Equal(t, "system", llm.captured[1].Role)
	require.Contains(t, llm.captured[1].Content, "You are Harsh Pandey's AI Resume Assistant.")
	require.Contains(t, llm.captured[1].Content, "Resume Excerpts:\n\n[1]\n")
	require.Contains(t, llm.captured[1].Content, "CGPA 8.1")
	require.Equal(t, domain.ChatMessage{Role: "user", Content: "What is your CGPA?"}, llm.captured[2])
}

func TestAsk_MissingConversationID_GeneratesID(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "generated-id" }
	defer func() { newUUID = orig }()

	state := &mockState{turnCount: 99}
	svc := newTestService(t, defaultParams(), scoped(true, "Sure."), state)

	out, err := svc.Ask(context.Background(), AskInput{Question: "What projects have you built?"})
	require.NoError(t, err)
	require.Equal(t, "generated-id", out.ConversationID)
	require.Equal(t, 1, state.savedTurns)
}

func TestAsk_OutOfScopeReturnsNotAvailable(t *testing.T) {
	state := &mockState{}
	svc := newTestService(t, defaultParams(), scoped(false, ""), state)

	out, err := svc.Ask(context.Background(), AskInput{Question: "What is your favourite film?"})
	require.NoError(t, err)
	require.Equal(t, NotAvailableAnswer, out.Answer)
	require.Equal(t, NotAvailableAnswer, state.savedAnswer)
}

func TestAsk_ValidationErrors(t *testing.T) {
	llm := &mockLLM{}
	svc := newTestService(t, defaultParams(), llm, &mockState{})

	_, err := svc.Ask(context.Background(), AskInput{Question: " \t "})
	expectAskError(t, err, ErrorInvalidInput, "empty_question")

	_, err = svc.Ask(context.Background(), AskInput{Question: strings.Repeat("a", 301)})
	expectAskError(t, err, ErrorInvalidInput, "question_too_long")
	require.Zero(t, llm.callCount)
}

func TestAsk_FullConversationStartsFresh(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "fresh-id" }
	defer func() { newUUID = orig }()

	state := &mockState{turnCount: 10}
	llm := scoped(true, "ok")
	svc := newTestService(t, defaultParams(), llm, state)

	out, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?", ConversationID: "conv-1"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Answer)
	require.Equal(t, "fresh-id", out.ConversationID)
	require.Equal(t, "fresh-id", state.savedConvID)
	require.Equal(t, 1, state.savedTurns)
}

func TestAsk_ModelFromParameterStore(t *testing.T) {
	p := defaultParams()
	p.vals["/prefix/config/model"] = " meta-llama/llama-3-8b-instruct "
	llm := scoped(true, "ok")
	svc := newTestService(t, p, llm, &mockState{})

	_, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	require.NoError(t, err)
	require.Equal(t, "meta-llama/llama-3-8b-instruct", llm.model)
}

func TestAsk_SSMLoadErrors(t *testing.T) {
	svc := newTestService(t, &mockParams{err: errors.New("ssm unavailable")}, scoped(true, "ok"), &mockState{})
	_, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "ssm_load_error")

	p := defaultParams()
	delete(p.vals, "/prefix/pinned_prompt")
	svc = newTestService(t, p, scoped(true, "ok"), &mockState{})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "ssm_load_error")

	p = defaultParams()
	delete(p.vals, "/prefix/config/model")
	svc = newTestService(t, p, scoped(true, "ok"), &mockState{})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "ssm_load_error")

	p = defaultParams()
	p.vals["/prefix/resume"] = "   "
	svc = newTestService(t, p, scoped(true, "ok"), &mockState{})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "ssm_load_error")
}

func TestAsk_SSMLoadError_IsRetriedOnNextRequest(t *testing.T) {
	p := &transientParams{mockParams: defaultParams(), failOnce: true}
	svc := newTestService(t, p, scoped(true, "ok"), &mockState{})

	_, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "ssm_load_error")

	out, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Answer)
}

func TestAsk_StateErrors(t *testing.T) {
	svc := newTestService(t, defaultParams(), scoped(true, "ok"), &mockState{historyErr: errors.New("dynamodb down")})
	_, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "state_history_error")

	svc = newTestService(t, defaultParams(), scoped(true, "ok"), &mockState{turnCountErr: errors.New("meta read failed")})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?", ConversationID: "conv-1"})
	expectAskError(t, err, ErrorInternal, "state_turn_count_error")

	svc = newTestService(t, defaultParams(), scoped(true, "ok"), &mockState{saveErr: errors.New("write failed")})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorInternal, "state_write_error")
}

func TestAsk_LLMErrors(t *testing.T) {
	svc := newTestService(t, defaultParams(), &mockLLM{err: &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}}, &mockState{})
	_, err := svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorRateLimited, "llm_rate_limited")

	svc = newTestService(t, defaultParams(), &mockLLM{err: &openai.HTTPStatusError{StatusCode: http.StatusInternalServerError}}, &mockState{})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorUpstream, "llm_error")

	svc = newTestService(t, defaultParams(), &mockLLM{answer: "I am a developer."}, &mockState{})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What do you do?"})
	expectAskError(t, err, ErrorUpstream, "llm_malformed_response")
}

func TestAsk_ReplaysOnlyCompletedTurns(t *testing.T) {
	history := []domain.Message{
		{Question: "Where did you study?", Answer: "IIT Mandi.", Status: statusComplete},
		{Question: "Never answered", Status: "pending"},
		{Question: "Blank answer", Answer: " ", Status: statusComplete},
	}
	llm := scoped(true, "ok")
	svc := newTestService(t, defaultParams(), llm, &mockState{history: history})

	_, err := svc.Ask(context.Background(), AskInput{Question: "And your CGPA?"})
	require.NoError(t, err)
	require.Len(t, llm.captured, 5)
	require.Equal(t, domain.ChatMessage{Role: "user", Content: "Where did you study?"}, llm.captured[2])
	require.Equal(t, domain.ChatMessage{Role: "assistant", Content: "IIT Mandi."}, llm.captured[3])
	require.Equal(t, "And your CGPA?", llm.captured[4].Content)
}

func TestBuildPolicyPrompt_IncludesRules(t *testing.T) {
	content := buildPolicyPrompt()
	require.Contains(t, content, "Role:")
	require.Contains(t, content, "Behavior Rules:")
	require.Contains(t, content, "first person")
	require.Contains(t, content, "two to four sentences")
	require.Contains(t, content, "Return JSON only with keys in_scope")
}

func TestBuildResumePrompt_NoExcerpts(t *testing.T) {
	content := buildResumePrompt(promptContext{pinnedPrompt: "  Pinned  "})
	require.Equal(t, "Pinned\n\nResume Excerpts:\n(none)", content)
}

func TestParseScopedAnswer(t *testing.T) {
	out, err := parseScopedAnswer(`{"in_scope":true,"answer":"hello"}`)
	require.NoError(t, err)
	require.True(t, out.InScope)
	require.Equal(t, "hello", out.Answer)

	out, err = parseScopedAnswer("```json\n{\"in_scope\":false,\"answer\":\"\"}\n```")
	require.NoError(t, err)
	require.False(t, out.InScope)

	_, err = parseScopedAnswer(`{"in_scope":true,"answer":""}`)
	require.Error(t, err)

	_, err = parseScopedAnswer(`not-json`)
	require.Error(t, err)

	_, err = parseScopedAnswer(`{"in_scope":true,"answer":"x","extra":true}`)
	require.Error(t, err)

	_, err = parseScopedAnswer(`{"in_scope":true,"answer":"x"} {}`)
	require.ErrorContains(t, err, "multiple JSON values")
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	require.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}
