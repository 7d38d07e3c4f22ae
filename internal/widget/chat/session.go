// Package chat models the resume chat widget: an append-only list of turns
// and a busy flag that keeps a second question from being sent while one is
// in flight.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"portfolio-site/internal/domain"
)

const (
	DefaultEndpoint = "http://localhost:8000/chat"

	// FallbackAnswer replaces an empty answer from the backend.
	FallbackAnswer = "I couldn’t find that information in my resume."
	// ApologyAnswer is shown when the backend cannot be reached or fails.
	ApologyAnswer = "Sorry, I am having trouble connecting to my AI backend."
)

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
}

type askResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
}

// Session is one open chat widget. Its turns live until Close.
type Session struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	mu             sync.Mutex
	turns          []domain.Turn
	busy           bool
	conversationID string
}

type Option func(*Session)

// WithHTTPClient replaces the default client. The widget sets no timeout of
// its own; a request lasts as long as the client or context allows.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c != nil {
			s.httpClient = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSession(endpoint string, opts ...Option) *Session {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	s := &Session{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends input to the backend and records the exchange. It reports
// false without doing anything when input is blank or a question is already
// in flight. Otherwise it appends the user turn, waits for the backend, and
// appends exactly one assistant turn: the answer, FallbackAnswer for an empty
// answer, or ApologyAnswer on any failure.
func (s *Session) Submit(ctx context.Context, input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	s.busy = true
	s.turns = append(s.turns, domain.Turn{Role: domain.RoleUser, Text: input})
	convID := s.conversationID
	s.mu.Unlock()

	reply, newConvID, err := s.ask(ctx, input, convID)
	if err != nil {
		s.logger.Warn("chat backend request failed", "endpoint", s.endpoint, "err", err)
		reply = ApologyAnswer
	} else if reply == "" {
		reply = FallbackAnswer
	}

	s.mu.Lock()
	s.turns = append(s.turns, domain.Turn{Role: domain.RoleAssistant, Text: reply})
	if newConvID != "" {
		s.conversationID = newConvID
	}
	s.busy = false
	s.mu.Unlock()
	return true
}

func (s *Session) ask(ctx context.Context, question, convID string) (string, string, error) {
	body, err := json.Marshal(askRequest{Question: question, ConversationID: convID})
	if err != nil {
		return "", "", fmt.Errorf("chat: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("chat: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return "", "", fmt.Errorf("chat: server error: status %d", res.StatusCode)
	}

	var out askResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return "", "", fmt.Errorf("chat: decode response: %w", err)
	}
	return strings.TrimSpace(out.Answer), out.ConversationID, nil
}

// Busy reports whether a question is in flight. The input and send button
// are disabled while it is true.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Turns returns the conversation so far in display order.
func (s *Session) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Close discards the conversation. A request still in flight appends its
// reply to the emptied session when it returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.conversationID = ""
}
