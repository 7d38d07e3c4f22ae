package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	n, err := s.GetConversationTurnCount(ctx, "c1")
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, s.SaveCompletedTurn(ctx, "c1", "q1", "a1", 4, 1))
	require.NoError(t, s.SaveCompletedTurn(ctx, "c1", "q2", "a2", 4, 2))
	require.NoError(t, s.SaveCompletedTurn(ctx, "c2", "other", "x", 1, 1))

	n, err = s.GetConversationTurnCount(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	hist, err := s.GetHistory(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, "q1", hist[0].Question)
	require.Equal(t, statusDone, hist[0].Status)

	hist, err = s.GetHistory(ctx, "c1", 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, "q2", hist[0].Question)
}

func TestMemoryStore_ExpiresIdleConversations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.SaveCompletedTurn(ctx, "c1", "q", "a", 0, 1))
	now = now.Add(2 * time.Minute)

	hist, err := s.GetHistory(ctx, "c1", 10)
	require.NoError(t, err)
	require.Empty(t, hist)
	require.Empty(t, s.convs)
}
