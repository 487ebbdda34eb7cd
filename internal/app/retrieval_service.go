package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"research-assistant/internal/ai"
	"research-assistant/internal/index"
)

const (
	defaultTopK = 5

	// Returned instead of an error when the multimodal call fails and the
	// retrieved set has no text segments to fall back on.
	noContentAnswer = "No text content found to answer the question."
)

var ErrCorpusNotInitialized = errors.New("no document has been indexed yet")

// Completer is the language-model capability the retrieval engine consumes.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	CompleteMultimodal(ctx context.Context, parts []ai.ContentPart) (string, error)
}

// QueryEmbedder embeds query text into the corpus's shared vector space.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// RetrievalService answers a query from the active corpus: embed the query,
// run exact top-k search, assemble a mixed text+image prompt, and invoke the
// model, degrading to text-only when the multimodal call fails.
type RetrievalService struct {
	store    *index.Store
	embedder QueryEmbedder
	llm      Completer
}

func NewRetrievalService(store *index.Store, embedder QueryEmbedder, llm Completer) *RetrievalService {
	return &RetrievalService{store: store, embedder: embedder, llm: llm}
}

// RetrievalResult carries the synthesized answer plus the ranked segments it
// was built from.
type RetrievalResult struct {
	Answer   string               `json:"answer"`
	Segments []index.SearchResult `json:"segments"`
}

func (s *RetrievalService) Query(ctx context.Context, query string, topK int) (*RetrievalResult, error) {
	corpus := s.store.Current()
	if corpus == nil || corpus.Len() == 0 {
		return nil, ErrCorpusNotInitialized
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	queryEmbedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	results := corpus.Search(queryEmbedding, topK)
	parts := buildCompositeParts(query, results, corpus)

	answer, err := s.llm.CompleteMultimodal(ctx, parts)
	if err != nil {
		log.Printf("multimodal completion failed, retrying text-only: %v", err)
		answer, err = s.fallbackTextOnly(ctx, query, results)
		if err != nil {
			return nil, err
		}
	}

	return &RetrievalResult{
		Answer:   strings.TrimSpace(answer),
		Segments: results,
	}, nil
}

// buildCompositeParts assembles the multimodal prompt: one text block with
// [Page N] excerpts and per-image notes, followed by the referenced image
// assets as separate parts.
func buildCompositeParts(query string, results []index.SearchResult, corpus *index.Corpus) []ai.ContentPart {
	textSegments, imageSegments := partitionByKind(results)

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nContext:\n", query)
	if len(textSegments) > 0 {
		b.WriteString("Text excerpts:\n")
		for _, seg := range textSegments {
			fmt.Fprintf(&b, "[Page %d]: %s\n\n", seg.Page, seg.Content)
		}
	}
	if len(imageSegments) > 0 {
		b.WriteString("\nImages from document (see attached images):\n")
		for _, seg := range imageSegments {
			fmt.Fprintf(&b, "- Image from page %d\n", seg.Page)
		}
	}
	b.WriteString("\nPlease answer the question based on the provided text and images.")

	parts := []ai.ContentPart{ai.TextPart(b.String())}
	for _, seg := range imageSegments {
		if png, ok := corpus.Asset(seg.Content); ok {
			parts = append(parts, ai.ImagePart(png))
		}
	}
	return parts
}

// fallbackTextOnly retries with only the text segments. This is the one place
// a provider failure is absorbed: with no text segments at all, the fixed
// no-content answer is returned instead of the error.
func (s *RetrievalService) fallbackTextOnly(ctx context.Context, query string, results []index.SearchResult) (string, error) {
	textSegments, _ := partitionByKind(results)
	if len(textSegments) == 0 {
		return noContentAnswer, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nContext:\n", query)
	for _, seg := range textSegments {
		fmt.Fprintf(&b, "[Page %d]: %s\n\n", seg.Page, seg.Content)
	}
	b.WriteString("Please answer the question based on the provided text context.")

	answer, err := s.llm.Complete(ctx, []ai.ChatMessage{{Role: "user", Content: b.String()}})
	if err != nil {
		return "", fmt.Errorf("text-only fallback failed: %w", err)
	}
	return answer, nil
}

func partitionByKind(results []index.SearchResult) (textSegments, imageSegments []index.Segment) {
	for _, r := range results {
		switch r.Segment.Kind {
		case index.KindText:
			textSegments = append(textSegments, r.Segment)
		case index.KindImage:
			imageSegments = append(imageSegments, r.Segment)
		}
	}
	return textSegments, imageSegments
}
