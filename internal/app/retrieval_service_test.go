package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/index"
)

func threePageCorpus() *index.Corpus {
	return &index.Corpus{
		Segments: []index.Segment{
			{ID: "page_0_chunk_0", Kind: index.KindText, Content: "introduction material", Page: 0},
			{ID: "page_1_chunk_0", Kind: index.KindText, Content: "the page two summary content", Page: 1},
			{ID: "page_2_chunk_0", Kind: index.KindText, Content: "closing remarks", Page: 2},
		},
		Embeddings: [][]float32{
			{0, 1, 0},
			{1, 0, 0},
			{0, 0, 1},
		},
		Assets: map[string][]byte{},
	}
}

func mixedPageCorpus() *index.Corpus {
	return &index.Corpus{
		Segments: []index.Segment{
			{ID: "page_1_chunk_0", Kind: index.KindText, Content: "diagram caption text", Page: 1},
			{ID: "page_1_img_0", Kind: index.KindImage, Content: "page_1_img_0", Page: 1},
		},
		Embeddings: [][]float32{
			{1, 0, 0},
			{0.9, 0.1, 0},
		},
		Assets: map[string][]byte{"page_1_img_0": []byte("png-bytes")},
	}
}

func newRetrieval(corpus *index.Corpus, llm *fakeCompleter) (*RetrievalService, *index.Store) {
	store := index.NewStore()
	if corpus != nil {
		store.Swap(corpus)
	}
	embedder := &fakeQueryEmbedder{vec: []float32{1, 0, 0}}
	return NewRetrievalService(store, embedder, llm), store
}

func TestQueryRequiresCorpus(t *testing.T) {
	svc, _ := newRetrieval(nil, &fakeCompleter{answer: "x"})

	_, err := svc.Query(context.Background(), "anything", 5)
	require.ErrorIs(t, err, ErrCorpusNotInitialized)
}

func TestQueryNotInitializedBeforeIngestAndAfterReset(t *testing.T) {
	svc, store := newRetrieval(nil, &fakeCompleter{answer: "x"})

	_, before := svc.Query(context.Background(), "same question", 5)
	require.ErrorIs(t, before, ErrCorpusNotInitialized)

	store.Swap(threePageCorpus())
	_, err := svc.Query(context.Background(), "same question", 5)
	require.NoError(t, err)

	store.Reset()
	_, after := svc.Query(context.Background(), "same question", 5)
	require.ErrorIs(t, after, ErrCorpusNotInitialized)
}

func TestQueryRetrievesMatchingPageSegment(t *testing.T) {
	llm := &fakeCompleter{answer: "page two covers the summary"}
	svc, _ := newRetrieval(threePageCorpus(), llm)

	result, err := svc.Query(context.Background(), "summarize page 2", 5)
	require.NoError(t, err)

	// the intermediate retrieval set, not just the final text, must include
	// the matching page-1 (zero-based) segment, ranked first here.
	require.NotEmpty(t, result.Segments)
	assert.Equal(t, "page_1_chunk_0", result.Segments[0].Segment.ID)
	assert.Equal(t, 1, result.Segments[0].Segment.Page)
	assert.Equal(t, "page two covers the summary", result.Answer)
}

func TestQueryCompositePromptMixesKinds(t *testing.T) {
	llm := &fakeCompleter{answer: "describes the diagram"}
	svc, _ := newRetrieval(mixedPageCorpus(), llm)

	result, err := svc.Query(context.Background(), "what does the diagram show", 5)
	require.NoError(t, err)
	require.Len(t, result.Segments, 2)

	require.Len(t, llm.multimodalCalls, 1)
	parts := llm.multimodalCalls[0]
	require.Len(t, parts, 2)

	assert.False(t, parts[0].IsImage())
	assert.Contains(t, parts[0].Text, "[Page 1]: diagram caption text")
	assert.Contains(t, parts[0].Text, "- Image from page 1")
	assert.True(t, parts[1].IsImage())
	assert.Equal(t, []byte("png-bytes"), parts[1].ImagePNG)
}

func TestQueryFallsBackToTextOnly(t *testing.T) {
	llm := &fakeCompleter{answer: "text-only answer", multimodalErr: errBoom}
	svc, _ := newRetrieval(mixedPageCorpus(), llm)

	result, err := svc.Query(context.Background(), "what does the diagram show", 5)
	require.NoError(t, err)
	assert.Equal(t, "text-only answer", result.Answer)

	require.Len(t, llm.completeCalls, 1)
	prompt := llm.completeCalls[0][0].Content
	assert.Contains(t, prompt, "[Page 1]: diagram caption text")
	assert.NotContains(t, prompt, "attached images")
}

func TestQueryNoContentAnswerWhenOnlyImagesFail(t *testing.T) {
	corpus := &index.Corpus{
		Segments: []index.Segment{
			{ID: "page_0_img_0", Kind: index.KindImage, Content: "page_0_img_0", Page: 0},
		},
		Embeddings: [][]float32{{1, 0, 0}},
		Assets:     map[string][]byte{"page_0_img_0": []byte("png")},
	}
	llm := &fakeCompleter{multimodalErr: errBoom, completeErr: errBoom}
	svc, _ := newRetrieval(corpus, llm)

	result, err := svc.Query(context.Background(), "describe the image", 5)
	require.NoError(t, err)
	assert.Equal(t, noContentAnswer, result.Answer)
	assert.Empty(t, llm.completeCalls, "no text segments means no text-only retry")
}

func TestQueryEmptyText(t *testing.T) {
	svc, _ := newRetrieval(threePageCorpus(), &fakeCompleter{answer: "x"})

	_, err := svc.Query(context.Background(), "   ", 5)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestQueryDefaultsTopK(t *testing.T) {
	llm := &fakeCompleter{answer: "ok"}
	svc, _ := newRetrieval(threePageCorpus(), llm)

	result, err := svc.Query(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Len(t, result.Segments, 3)
}

func TestFallbackPromptOmitsImageNotes(t *testing.T) {
	llm := &fakeCompleter{answer: "fine", multimodalErr: errBoom}
	svc, _ := newRetrieval(mixedPageCorpus(), llm)

	_, err := svc.Query(context.Background(), "question", 5)
	require.NoError(t, err)

	require.Len(t, llm.completeCalls, 1)
	prompt := llm.completeCalls[0][0].Content
	assert.False(t, strings.Contains(prompt, "Image from page"))
}
