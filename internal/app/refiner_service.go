package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research-assistant/internal/ai"
)

var ErrEmptyQuery = errors.New("query is empty")

const queryRefinerPrompt = `You are a helpful AI assistant whose task is to refine user queries so they cover all relevant aspects needed for a high-quality search or LLM prompt.

Input:
- User Query: %s

Output:
- A single refined query that is clearer, more specific, and preserves the user's original intent.

Guidelines:
1. Keep the refined query concise (one sentence or short paragraph).
2. Expand vague terms, add likely missing context (e.g., domain, objective, constraints), and remove irrelevant words.
3. Preserve the user's intent - do not add new goals the user didn't imply.
4. Use plain language and be actionable (suitable for search engines or LLMs).`

// RefinerService rewrites a raw user query into one that conveys intent more
// explicitly. A single completion with a fixed instruction prompt; a model
// failure propagates to the caller untouched.
type RefinerService struct {
	llm Completer
}

func NewRefinerService(llm Completer) *RefinerService {
	return &RefinerService{llm: llm}
}

func (s *RefinerService) Refine(ctx context.Context, rawQuery string) (string, error) {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" {
		// No point spending a model call on nothing.
		return "", ErrEmptyQuery
	}

	refined, err := s.llm.Complete(ctx, []ai.ChatMessage{
		{Role: "user", Content: fmt.Sprintf(queryRefinerPrompt, rawQuery)},
	})
	if err != nil {
		return "", fmt.Errorf("refine query failed: %w", err)
	}
	return strings.TrimSpace(refined), nil
}
