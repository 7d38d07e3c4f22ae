package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"portfolio-site/handler"
	"portfolio-site/internal/domain"
	"portfolio-site/internal/integrations/paramstore"
	"portfolio-site/internal/repository"
	"portfolio-site/internal/usecase"
)

type echoLLM struct {
	calls int
}

func (l *echoLLM) Chat(context.Context, string, []domain.ChatMessage) (string, error) {
	l.calls++
	return fmt.Sprintf(`{"in_scope":true,"answer":"answer %d"}`, l.calls), nil
}

type noContact struct{}

func (noContact) Send(context.Context, domain.ContactSubmission) error { return nil }

func newBackend(t *testing.T, maxTurns int) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	params := paramstore.NewStatic(map[string]string{
		"/site/resume":        "Harsh Pandey\nFull-stack developer.\n\nProjects\nTradeX: stock tracker.",
		"/site/pinned_prompt": "You are Harsh Pandey's AI Resume Assistant.",
		"/site/config/model":  "",
	})
	ask, err := usecase.NewAskService(params, &echoLLM{}, repository.NewMemoryStore(0), usecase.AskConfig{
		ParamPrefix: "/site",
		MaxTurns:    maxTurns,
	})
	require.NoError(t, err)
	h, err := handler.NewHandler(ask, noContact{}, handler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewEngine(h))
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_LongConversationKeepsAnswering(t *testing.T) {
	srv := newBackend(t, 10)
	s := NewSession(srv.URL+"/chat", quiet())

	var firstID string
	for i := 1; i <= 12; i++ {
		require.True(t, s.Submit(context.Background(), fmt.Sprintf("Tell me about your projects (%d)", i)))
		turns := s.Turns()
		require.Len(t, turns, 2*i)
		require.Equal(t, fmt.Sprintf("answer %d", i), turns[len(turns)-1].Text)
		if i == 1 {
			firstID = s.conversationID
		}
	}
	require.NotEmpty(t, firstID)
	require.NotEqual(t, firstID, s.conversationID)
}
