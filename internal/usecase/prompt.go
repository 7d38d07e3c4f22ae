package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"portfolio-site/internal/domain"
	"portfolio-site/internal/rag"
)

type scopedAnswerResponse struct {
	InScope bool   `json:"in_scope"`
	Answer  string `json:"answer"`
}

type promptContext struct {
	pinnedPrompt string
	excerpts     []rag.Chunk
}

func buildPromptMessages(ctx promptContext, question string, history []domain.Message) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: "system", Content: buildPolicyPrompt()},
		{Role: "system", Content: buildResumePrompt(ctx)},
	}
	for _, m := range history {
		messages = append(messages, historyToPromptMessages(m)...)
	}
	return append(messages, domain.ChatMessage{Role: "user", Content: question})
}

func buildPolicyPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are the portfolio owner's AI resume assistant. Answer as if you are the owner, in first person.",
		"",
		"Sources:",
		"- The resume excerpts provided in this request",
		"- Completed prior conversation turns in this request",
		"",
		"Behavior Rules:",
		behaviorRules(),
		"",
		"Output Contract:",
		outputContract(),
	}, "\n")
}

func buildResumePrompt(ctx promptContext) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(ctx.pinnedPrompt))
	b.WriteString("\n\nResume Excerpts:")
	if len(ctx.excerpts) == 0 {
		b.WriteString("\n(none)")
	}
	for i, c := range ctx.excerpts {
		fmt.Fprintf(&b, "\n\n[%d]\n%s", i+1, strings.TrimSpace(c.Text))
	}
	return b.String()
}

func historyToPromptMessages(m domain.Message) []domain.ChatMessage {
	if m.Status != statusComplete {
		return nil
	}
	question := strings.TrimSpace(m.Question)
	answer := strings.TrimSpace(m.Answer)
	if question == "" || answer == "" {
		return nil
	}
	return []domain.ChatMessage{
		{Role: "user", Content: question},
		{Role: "assistant", Content: answer},
	}
}

func behaviorRules() string {
	return strings.Join([]string{
		"1) Speak in first person, professionally and confidently.",
		"2) Use only information from the resume excerpts. Do not guess or fabricate.",
		"3) For education, name the institution clearly. For GPA, state the CGPA clearly.",
		"4) For projects, use the project names. For skills, list them clearly.",
		"5) Keep answers concise: two to four sentences.",
		"6) Never mention the words \"context\" or \"excerpts\", and never say \"according to the resume\".",
		"7) Answer naturally, like a real person introducing themselves.",
	}, "\n")
}

func outputContract() string {
	return "Return JSON only with keys in_scope (boolean) and answer (string). " +
		"If the excerpts do not contain the answer, return in_scope=false and answer=\"\". " +
		"Otherwise return in_scope=true and the final visitor-facing answer in answer."
}

// parseScopedAnswer decodes the model's JSON reply. Smaller models sometimes
// wrap the object in a Markdown code fence, which is stripped first.
func parseScopedAnswer(raw string) (scopedAnswerResponse, error) {
	var out scopedAnswerResponse
	dec := json.NewDecoder(bytes.NewBufferString(stripCodeFence(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return scopedAnswerResponse{}, fmt.Errorf("usecase: decode scoped answer: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return scopedAnswerResponse{}, errors.New("usecase: decode scoped answer: multiple JSON values")
		}
		return scopedAnswerResponse{}, fmt.Errorf("usecase: decode scoped answer trailing data: %w", err)
	}
	if out.InScope && strings.TrimSpace(out.Answer) == "" {
		return scopedAnswerResponse{}, errors.New("usecase: scoped answer missing answer for in-scope question")
	}
	return out, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
