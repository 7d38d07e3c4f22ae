// Package rag splits the resume into chunks and retrieves the ones most
// relevant to a visitor's question.
package rag

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultTopK         = 4

	fuzzyMinRunes = 5
	fuzzyWeight   = 0.5
	maxTermFreq   = 3
)

// Chunk is a contiguous piece of the source document.
type Chunk struct {
	Index int
	Text  string
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index holds the chunked document and its per-chunk term frequencies.
type Index struct {
	chunks []Chunk
	terms  []map[string]int
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {}, "have": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "tell": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"why": {}, "with": {}, "you": {}, "your": {},
}

// NewIndex chunks text and builds the term tables used by Retrieve.
func NewIndex(text string, opts Options) (*Index, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}
	pieces := split(text, opts.ChunkSize, opts.ChunkOverlap)
	if len(pieces) == 0 {
		return nil, errors.New("rag: document is empty")
	}
	idx := &Index{
		chunks: make([]Chunk, len(pieces)),
		terms:  make([]map[string]int, len(pieces)),
	}
	for i, p := range pieces {
		idx.chunks[i] = Chunk{Index: i, Text: p}
		tf := make(map[string]int)
		for _, tok := range tokenize(p) {
			tf[tok]++
		}
		idx.terms[i] = tf
	}
	return idx, nil
}

// Len reports the number of chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Retrieve returns up to k chunks ranked by relevance to question. When no
// chunk shares a term with the question the leading chunks are returned, since
// a resume opens with its summary.
func (idx *Index) Retrieve(question string, k int) []Chunk {
	if k <= 0 {
		k = DefaultTopK
	}
	query := uniqueTokens(question)
	if len(query) == 0 {
		return nil
	}

	matches := make([][]float64, len(idx.chunks))
	df := make([]int, len(query))
	for i := range idx.chunks {
		matches[i] = make([]float64, len(query))
		for j, q := range query {
			m := idx.match(i, q)
			matches[i][j] = m
			if m > 0 {
				df[j]++
			}
		}
	}

	type scored struct {
		chunk Chunk
		score float64
	}
	n := float64(len(idx.chunks))
	ranked := make([]scored, 0, len(idx.chunks))
	for i, c := range idx.chunks {
		var score float64
		for j := range query {
			if matches[i][j] == 0 {
				continue
			}
			score += matches[i][j] * math.Log(1+n/float64(df[j]))
		}
		if score > 0 {
			ranked = append(ranked, scored{chunk: c, score: score})
		}
	}

	if len(ranked) == 0 {
		return idx.leading(k)
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]Chunk, len(ranked))
	for i, r := range ranked {
		out[i] = r.chunk
	}
	return out
}

func (idx *Index) leading(k int) []Chunk {
	if k > len(idx.chunks) {
		k = len(idx.chunks)
	}
	out := make([]Chunk, k)
	copy(out, idx.chunks[:k])
	return out
}

// match returns the capped weighted frequency of q in chunk i.
func (idx *Index) match(i int, q string) float64 {
	var w float64
	if tf, ok := idx.terms[i][q]; ok {
		w += float64(min(tf, maxTermFreq))
	}
	if utf8.RuneCountInString(q) < fuzzyMinRunes {
		return w
	}
	for term, tf := range idx.terms[i] {
		if term == q || utf8.RuneCountInString(term) < fuzzyMinRunes {
			continue
		}
		if levenshtein.ComputeDistance(q, term) == 1 {
			w += fuzzyWeight * float64(min(tf, maxTermFreq))
		}
	}
	return w
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func uniqueTokens(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokenize(s) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
