package app

import (
	"context"
	"errors"
	"sync"

	"research-assistant/internal/ai"
	"research-assistant/internal/index"
	"research-assistant/internal/model"
)

// fakeCompleter scripts the language-model capability. Multimodal and plain
// calls can fail independently to exercise the fallback paths.
type fakeCompleter struct {
	mu sync.Mutex

	answer        string
	multimodalErr error
	completeErr   error

	multimodalCalls [][]ai.ContentPart
	completeCalls   [][]ai.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls = append(f.completeCalls, messages)
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.answer, nil
}

func (f *fakeCompleter) CompleteMultimodal(ctx context.Context, parts []ai.ContentPart) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multimodalCalls = append(f.multimodalCalls, parts)
	if f.multimodalErr != nil {
		return "", f.multimodalErr
	}
	return f.answer, nil
}

type fakeQueryEmbedder struct {
	vec []float32
	err error
}

func (f *fakeQueryEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeRefiner struct {
	refined string
	err     error
}

func (f *fakeRefiner) Refine(ctx context.Context, rawQuery string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.refined != "" {
		return f.refined, nil
	}
	return "refined: " + rawQuery, nil
}

type fakeResearchAgent struct {
	answer string
	err    error
	block  chan struct{} // when set, Research waits until closed or ctx done
}

func (f *fakeResearchAgent) Research(ctx context.Context, query string) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeRetriever struct {
	result *RetrievalResult
	err    error
}

func (f *fakeRetriever) Query(ctx context.Context, query string, topK int) (*RetrievalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &RetrievalResult{Answer: "document says: " + query}, nil
}

// memoryCheckpointStore is the in-memory CheckpointStore used by workflow
// tests; histories are copied on both paths so tests see real snapshots.
type memoryCheckpointStore struct {
	mu       sync.Mutex
	sessions map[string][]model.Turn
}

func newMemoryCheckpointStore() *memoryCheckpointStore {
	return &memoryCheckpointStore{sessions: make(map[string][]model.Turn)}
}

func (s *memoryCheckpointStore) Load(ctx context.Context, sessionID string) ([]model.Turn, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	out := make([]model.Turn, len(history))
	copy(out, history)
	return out, true, nil
}

func (s *memoryCheckpointStore) Save(ctx context.Context, sessionID string, history []model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Turn, len(history))
	copy(out, history)
	s.sessions[sessionID] = out
	return nil
}

type slowIndexer struct {
	corpus *index.Corpus
	err    error
	block  chan struct{} // when set, Index waits until closed or ctx done
}

func (f *slowIndexer) Index(ctx context.Context, data []byte) (*index.Corpus, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.corpus, nil
}

var errBoom = errors.New("boom")
