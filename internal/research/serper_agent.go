package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"research-assistant/internal/ai"
)

const serperSearchURL = "https://google.serper.dev/search"

var ErrNoAPIKey = errors.New("serper api key not configured")

// Completer synthesizes an answer from raw search results.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// SerperAgent answers a query with live web research: a Serper web search
// followed by a completion over the collected snippets. The workflow consumes
// it as one opaque call.
type SerperAgent struct {
	apiKey     string
	maxResults int
	llm        Completer
	httpClient *http.Client
}

func NewSerperAgent(apiKey string, maxResults int, llm Completer) *SerperAgent {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SerperAgent{
		apiKey:     apiKey,
		maxResults: maxResults,
		llm:        llm,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *SerperAgent) Research(ctx context.Context, query string) (string, error) {
	results, err := a.search(ctx, query)
	if err != nil {
		return "", err
	}
	if results == "" {
		return "", fmt.Errorf("web search returned no results")
	}

	prompt := fmt.Sprintf(
		"Answer the following question using the web search results below. Cite which result supports each claim and say so when the results do not answer the question.\n\nQuestion: %s\n\nSearch results:\n%s",
		query, results,
	)
	answer, err := a.llm.Complete(ctx, []ai.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("synthesize research answer failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (a *SerperAgent) search(ctx context.Context, query string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": a.maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("marshal search request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperSearchURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("X-API-KEY", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read search response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("search response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		AnswerBox struct {
			Answer  string `json:"answer"`
			Snippet string `json:"snippet"`
		} `json:"answerBox"`
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse search json failed: %w", err)
	}

	var b strings.Builder
	if parsed.AnswerBox.Answer != "" {
		fmt.Fprintf(&b, "Direct answer: %s\n\n", parsed.AnswerBox.Answer)
	} else if parsed.AnswerBox.Snippet != "" {
		fmt.Fprintf(&b, "Direct answer: %s\n\n", parsed.AnswerBox.Snippet)
	}
	for i, item := range parsed.Organic {
		if i >= a.maxResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, item.Title, item.Snippet, item.Link)
	}
	return strings.TrimSpace(b.String()), nil
}
