package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const resume = `Harsh Pandey
B.Tech student at IIT Mandi. Full-stack developer.

Education
Indian Institute of Technology Mandi, B.Tech, CGPA 8.1

Skills
TypeScript, React, Next.js, Node.js, Python, Go

Projects
TradeX: real-time stock market tracker built with Next.js.
GenWeb: AI website builder with automated GitHub repository creation.`

func newTestIndex(t *testing.T, size int) *Index {
	t.Helper()
	idx, err := NewIndex(resume, Options{ChunkSize: size})
	require.NoError(t, err)
	return idx
}

func TestNewIndex_EmptyDocument(t *testing.T) {
	_, err := NewIndex(" \n\n ", Options{})
	require.Error(t, err)
}

func TestNewIndex_OneChunkPerSection(t *testing.T) {
	idx := newTestIndex(t, 80)
	require.Equal(t, 5, idx.Len())
}

func TestRetrieve_RanksMatchingChunkFirst(t *testing.T) {
	idx := newTestIndex(t, 80)

	got := idx.Retrieve("What is your CGPA?", 4)
	require.NotEmpty(t, got)
	require.Contains(t, got[0].Text, "CGPA 8.1")

	got = idx.Retrieve("Which skills do you have?", 1)
	require.Len(t, got, 1)
	require.Contains(t, got[0].Text, "TypeScript")
}

func TestRetrieve_ToleratesTypos(t *testing.T) {
	idx := newTestIndex(t, 80)
	got := idx.Retrieve("tell me about your projecs", 1)
	require.Len(t, got, 1)
	require.Contains(t, got[0].Text, "TradeX")
}

func TestRetrieve_NoOverlapFallsBackToLeadingChunks(t *testing.T) {
	idx := newTestIndex(t, 80)
	got := idx.Retrieve("zzz qqq", 2)
	require.Len(t, got, 2)
	require.Equal(t, 0, got[0].Index)
	require.Equal(t, 1, got[1].Index)
}

func TestRetrieve_EmptyQuestion(t *testing.T) {
	idx := newTestIndex(t, 80)
	require.Nil(t, idx.Retrieve("   ", 4))
	require.Nil(t, idx.Retrieve("what is the", 4))
}

func TestRetrieve_DefaultsK(t *testing.T) {
	idx := newTestIndex(t, 10)
	require.LessOrEqual(t, len(idx.Retrieve("Next.js", 0)), DefaultTopK)
}

func TestSplit_LongParagraphOverlaps(t *testing.T) {
	words := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		words = append(words, "word")
	}
	chunks := split(strings.Join(words, " "), 50, 10)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 50)
	}
	// 50 words of 4 bytes: ten words per chunk, stepping back two for overlap.
	require.Equal(t, "word word word word word word word word word word", chunks[0])
	require.Len(t, chunks, 6)
}

func TestSplit_PacksShortParagraphs(t *testing.T) {
	chunks := split("one\n\ntwo\n\nthree", 100, 0)
	require.Equal(t, []string{"one\ntwo\nthree"}, chunks)
}

func TestRetrieve_TiesKeepDocumentOrder(t *testing.T) {
	idx, err := NewIndex("golang one\n\nfiller text\n\ngolang two", Options{ChunkSize: 12})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	got := idx.Retrieve("golang", 4)
	require.Len(t, got, 2)
	require.Equal(t, 0, got[0].Index)
	require.Equal(t, 2, got[1].Index)
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	words := make([]string, 10)
	for i := range words {
		words[i] = "été"
	}
	// five 3-character words and four spaces make 19 characters (29 bytes).
	chunks := split(strings.Join(words, " "), 20, 0)
	require.Len(t, chunks, 2)
	require.Equal(t, "été été été été été", chunks[0])
	require.Equal(t, chunks[0], chunks[1])
}
