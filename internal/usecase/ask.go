package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"portfolio-site/internal/domain"
	"portfolio-site/internal/rag"
)

const (
	DefaultModel = "mistralai/mistral-7b-instruct"

	// NotAvailableAnswer is returned verbatim when the resume does not cover
	// the question.
	NotAvailableAnswer = "That information is not available in my resume."

	defaultMaxContext  = 20
	defaultMaxQuestion = 300
	defaultMaxTurns    = 10
	statusComplete     = "complete"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type StateReadWriter interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	SaveCompletedTurn(ctx context.Context, conversationID, question, answer string, sources, turns int) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// AskConfig tunes AskService. Zero values select the defaults.
type AskConfig struct {
	ParamPrefix     string
	// Model is used when the /config/model parameter is empty.
	Model           string
	MaxContextItems int
	MaxQuestionLen  int
	MaxTurns        int
	TopK            int
	Chunking        rag.Options
}

// AskService answers visitor questions about the owner's resume, grounding
// the model in the resume excerpts most relevant to each question.
type AskService struct {
	params ParamGetter
	llm    LLMClient
	state  StateReadWriter
	cfg    AskConfig

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	index        *rag.Index
	pinnedPrompt string
	model        string
}

type AskInput struct {
	Question       string
	ConversationID string
}

type AskOutput struct {
	Answer         string
	ConversationID string
}

func NewAskService(p ParamGetter, llm LLMClient, s StateReadWriter, cfg AskConfig) (*AskService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if cfg.ParamPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = defaultMaxContext
	}
	if cfg.MaxQuestionLen <= 0 {
		cfg.MaxQuestionLen = defaultMaxQuestion
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}
	return &AskService{params: p, llm: llm, state: s, cfg: cfg}, nil
}

func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}
	if len([]rune(question)) > s.cfg.MaxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return AskOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	convID := strings.TrimSpace(in.ConversationID)
	existingTurns := 0
	if convID == "" {
		convID = newUUID()
	} else {
		n, err := s.state.GetConversationTurnCount(ctx, convID)
		if err != nil {
			return AskOutput{}, newError(ErrorInternal, "state_turn_count_error", err)
		}
		if n >= s.cfg.MaxTurns {
			// a full conversation continues under a fresh ID with no history.
			convID = newUUID()
		} else {
			existingTurns = n
		}
	}

	history, err := s.state.GetHistory(ctx, convID, s.cfg.MaxContextItems)
	if err != nil {
		return AskOutput{}, newError(ErrorInternal, "state_history_error", err)
	}

	s.cacheMu.RLock()
	excerpts := s.index.Retrieve(question, s.cfg.TopK)
	pc := promptContext{pinnedPrompt: s.pinnedPrompt, excerpts: excerpts}
	model := s.model
	s.cacheMu.RUnlock()

	raw, err := s.llm.Chat(ctx, model, buildPromptMessages(pc, question, history))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return AskOutput{}, newError(ErrorRateLimited, "llm_rate_limited", err)
		}
		return AskOutput{}, newError(ErrorUpstream, "llm_error", err)
	}

	decision, err := parseScopedAnswer(raw)
	if err != nil {
		return AskOutput{}, newError(ErrorUpstream, "llm_malformed_response", err)
	}
	answer := strings.TrimSpace(decision.Answer)
	if !decision.InScope {
		answer = NotAvailableAnswer
	}

	if err := s.state.SaveCompletedTurn(ctx, convID, question, answer, len(excerpts), existingTurns+1); err != nil {
		return AskOutput{}, newError(ErrorInternal, "state_write_error", err)
	}

	return AskOutput{Answer: answer, ConversationID: convID}, nil
}

// ensureConfig loads the resume, pinned prompt and model once. An empty model
// parameter selects cfg.Model. A failed load is not cached, so the next
// request tries again.
func (s *AskService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	resume, err := s.params.GetParameter(ctx, s.cfg.ParamPrefix+"/resume")
	if err != nil {
		return fmt.Errorf("usecase: load resume: %w", err)
	}
	pinnedPrompt, err := s.params.GetParameter(ctx, s.cfg.ParamPrefix+"/pinned_prompt")
	if err != nil {
		return fmt.Errorf("usecase: load pinned prompt: %w", err)
	}
	model, err := s.params.GetParameter(ctx, s.cfg.ParamPrefix+"/config/model")
	if err != nil {
		return fmt.Errorf("usecase: load model: %w", err)
	}
	index, err := rag.NewIndex(resume, s.cfg.Chunking)
	if err != nil {
		return fmt.Errorf("usecase: index resume: %w", err)
	}

	s.index = index
	s.pinnedPrompt = pinnedPrompt
	s.model = strings.TrimSpace(model)
	if s.model == "" {
		s.model = s.cfg.Model
	}
	s.cacheLoaded = true
	return nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
