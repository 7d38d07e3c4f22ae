package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjects_DisplayOrder(t *testing.T) {
	got := Projects()
	require.Len(t, got, 5)
	for i, p := range got {
		require.Equal(t, i+1, p.ID)
		require.NotEmpty(t, p.Title)
		require.NotEmpty(t, p.Link)
	}
	require.Equal(t, "Vatstech - Modern Web Platform", got[0].Title)
}

func TestProjects_ReturnsCopy(t *testing.T) {
	got := Projects()
	got[0].Title = "changed"
	require.Equal(t, "Vatstech - Modern Web Platform", Projects()[0].Title)
}

func TestTrack_Offset(t *testing.T) {
	tr := NewTrack(1000, 200)
	cases := []struct {
		progress float64
		want     float64
	}{
		{0, 0},
		{0.5, -2500},
		{1, -5000},
		{-0.2, 0},
		{1.7, -5000},
		{math.NaN(), 0},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, tr.Offset(tc.progress), 1e-9, "progress=%v", tc.progress)
	}
}

func TestTrack_OffsetEmptyTrack(t *testing.T) {
	require.Zero(t, Track{ViewportWidth: 1000}.Offset(0.5))
}

func TestTrack_LeadSpacer(t *testing.T) {
	require.Equal(t, 800.0, NewTrack(1000, 200).LeadSpacer())
	require.Zero(t, NewTrack(100, 200).LeadSpacer())
}

func TestTrack_PathLength(t *testing.T) {
	tr := NewTrack(1000, 0)
	require.Equal(t, 0.25, tr.PathLength(0.25))
	require.Equal(t, 1.0, tr.PathLength(3))
}
