package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"research-assistant/internal/ai"
	"research-assistant/internal/model"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	defaultQueryTimeout = 2 * time.Minute
)

var (
	ErrRefinerFailed   = errors.New("query refiner stage failed")
	ErrResearchFailed  = errors.New("research stage failed")
	ErrVectorFailed    = errors.New("vector retrieval stage failed")
	ErrWorkflowTimeout = errors.New("workflow timed out")
)

const combinePrompt = `You are a helpful research assistant. Two independent sources answered the same question; reconcile them into one coherent answer. Prefer facts both sources agree on, note meaningful disagreements, and do not repeat yourself.

Question: %s

Answer from live web research:
%s

Answer from the uploaded document:
%s

Combined answer:`

// WorkflowState is the per-invocation record threaded through the workflow
// nodes. Messages is append-only; the branch responses are discarded once the
// combine step has produced the final message.
type WorkflowState struct {
	Messages         []model.Turn
	ResearchResponse string
	VectorResponse   string
}

// ResearchAgent is the external multi-tool research capability, consumed as a
// single opaque call.
type ResearchAgent interface {
	Research(ctx context.Context, query string) (string, error)
}

// Retriever is the document retrieval branch.
type Retriever interface {
	Query(ctx context.Context, query string, topK int) (*RetrievalResult, error)
}

// QueryRefinerStage rewrites the raw query before fan-out.
type QueryRefinerStage interface {
	Refine(ctx context.Context, rawQuery string) (string, error)
}

// CheckpointStore maps a session id to its persisted message history.
type CheckpointStore interface {
	Load(ctx context.Context, sessionID string) ([]model.Turn, bool, error)
	Save(ctx context.Context, sessionID string, history []model.Turn) error
}

// TranscriptPublisher hands completed-turn messages to the async persistence
// pipeline.
type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.TranscriptMessage) error
}

// WorkflowService runs the fan-out/fan-in query pipeline for one session:
// refine the query, run the research and vector branches concurrently, join,
// combine, and checkpoint the grown history. Any stage failure aborts the
// invocation with the failing stage identified. Callers must not overlap
// invocations for the same session id.
type WorkflowService struct {
	refiner     QueryRefinerStage
	research    ResearchAgent
	retriever   Retriever
	llm         Completer
	checkpoints CheckpointStore
	transcript  TranscriptPublisher

	topK         int
	queryTimeout time.Duration
}

func NewWorkflowService(
	refiner QueryRefinerStage,
	research ResearchAgent,
	retriever Retriever,
	llm Completer,
	checkpoints CheckpointStore,
	transcript TranscriptPublisher,
	topK int,
	queryTimeout time.Duration,
) *WorkflowService {
	if topK <= 0 {
		topK = defaultTopK
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &WorkflowService{
		refiner:      refiner,
		research:     research,
		retriever:    retriever,
		llm:          llm,
		checkpoints:  checkpoints,
		transcript:   transcript,
		topK:         topK,
		queryTimeout: queryTimeout,
	}
}

// RunResult is the outcome of one workflow invocation.
type RunResult struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

func (s *WorkflowService) Run(ctx context.Context, sessionID, query string) (*RunResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state, err := s.restoreState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turnStart := len(state.Messages)
	state.Messages = append(state.Messages, model.Turn{Role: RoleUser, Content: query})

	runCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	refined, err := s.refiner.Refine(runCtx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefinerFailed, err)
	}
	state.Messages = append(state.Messages, model.Turn{Role: RoleAssistant, Content: refined})

	if err := s.runBranches(runCtx, refined, state); err != nil {
		return nil, err
	}

	final := s.combine(runCtx, refined, state)
	state.Messages = append(state.Messages, model.Turn{Role: RoleAssistant, Content: final})

	if err := s.checkpoints.Save(ctx, sessionID, state.Messages); err != nil {
		return nil, fmt.Errorf("save checkpoint failed: %w", err)
	}
	s.publishTurn(ctx, sessionID, state.Messages[turnStart:])

	return &RunResult{SessionID: sessionID, Response: final}, nil
}

func (s *WorkflowService) restoreState(ctx context.Context, sessionID string) (*WorkflowState, error) {
	history, found, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint failed: %w", err)
	}
	state := &WorkflowState{}
	if found {
		state.Messages = history
	}
	return state, nil
}

// runBranches fans the refined query out to the research and vector branches
// and joins before combine. The join is a hard wait: both branches must
// settle, and the surrounding context deadline turns an overlong join into a
// distinct timeout error rather than an indefinite wait.
func (s *WorkflowService) runBranches(ctx context.Context, refined string, state *WorkflowState) error {
	var (
		wg          sync.WaitGroup
		researchOut string
		researchErr error
		vectorOut   *RetrievalResult
		vectorErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		researchOut, researchErr = s.research.Research(ctx, refined)
	}()
	go func() {
		defer wg.Done()
		vectorOut, vectorErr = s.retriever.Query(ctx, refined, s.topK)
	}()

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrWorkflowTimeout, ctx.Err())
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrWorkflowTimeout, ctx.Err())
	}
	if researchErr != nil {
		return fmt.Errorf("%w: %v", ErrResearchFailed, researchErr)
	}
	if vectorErr != nil {
		return fmt.Errorf("%w: %v", ErrVectorFailed, vectorErr)
	}

	state.ResearchResponse = strings.TrimSpace(researchOut)
	if vectorOut != nil {
		state.VectorResponse = strings.TrimSpace(vectorOut.Answer)
	}
	return nil
}

// combine merges the branch outputs into the final message. One source is
// used as-is; two sources are reconciled by a synthesis completion, falling
// back to labelled concatenation when that call fails.
func (s *WorkflowService) combine(ctx context.Context, refined string, state *WorkflowState) string {
	research := state.ResearchResponse
	vector := state.VectorResponse

	switch {
	case research == "" && vector == "":
		return noContentAnswer
	case research == "":
		return vector
	case vector == "":
		return research
	}

	combined, err := s.llm.Complete(ctx, []ai.ChatMessage{
		{Role: "user", Content: fmt.Sprintf(combinePrompt, refined, research, vector)},
	})
	if err != nil {
		log.Printf("combine synthesis failed, concatenating sources: %v", err)
		return "From live web research:\n" + research + "\n\nFrom the uploaded document:\n" + vector
	}
	return strings.TrimSpace(combined)
}

// publishTurn hands this turn's new messages to the transcript pipeline.
// Best effort: the answer is already checkpointed, so a broker hiccup only
// costs the durable transcript copy.
func (s *WorkflowService) publishTurn(ctx context.Context, sessionID string, turns []model.Turn) {
	if s.transcript == nil {
		return
	}
	for _, turn := range turns {
		msg := model.TranscriptMessage{
			SessionID: sessionID,
			Role:      turn.Role,
			Content:   turn.Content,
		}
		if err := s.transcript.Publish(ctx, msg); err != nil {
			log.Printf("publish transcript message failed: %v", err)
		}
	}
}
