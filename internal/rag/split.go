package rag

import (
	"strings"
	"unicode/utf8"
)

// split packs paragraphs into chunks of at most size characters. Paragraphs
// that do not fit on their own are cut on word boundaries, carrying overlap
// characters of trailing context into the next piece.
func split(text string, size, overlap int) []string {
	var paragraphs []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if n > size {
			flush()
			chunks = append(chunks, splitWords(p, size, overlap)...)
			continue
		}
		if curLen > 0 && curLen+1+n > size {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(p)
		curLen += n
	}
	flush()
	return chunks
}

func splitWords(p string, size, overlap int) []string {
	words := strings.Fields(p)
	var (
		out   []string
		start int
	)
	for start < len(words) {
		end := start
		n := 0
		for end < len(words) {
			add := utf8.RuneCountInString(words[end])
			if n > 0 {
				add++
			}
			if n > 0 && n+add > size {
				break
			}
			n += add
			end++
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
		// step back over overlap characters of context, always advancing.
		back, next := 0, end
		for next > start+1 && back+utf8.RuneCountInString(words[next-1])+1 <= overlap {
			back += utf8.RuneCountInString(words[next-1]) + 1
			next--
		}
		start = next
	}
	return out
}
