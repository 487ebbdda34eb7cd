package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(
	refiner QueryRefinerStage,
	agent ResearchAgent,
	retriever Retriever,
	llm Completer,
	checkpoints CheckpointStore,
	timeout time.Duration,
) *WorkflowService {
	return NewWorkflowService(refiner, agent, retriever, llm, checkpoints, nil, 5, timeout)
}

func TestRunAppendsFullExchange(t *testing.T) {
	checkpoints := newMemoryCheckpointStore()
	llm := &fakeCompleter{answer: "combined answer"}
	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{answer: "web answer"},
		&fakeRetriever{result: &RetrievalResult{Answer: "doc answer"}},
		llm,
		checkpoints,
		0,
	)

	result, err := svc.Run(context.Background(), "", "what is ai")
	require.NoError(t, err)
	require.NotEmpty(t, result.SessionID)
	assert.Equal(t, "combined answer", result.Response)

	history, found, err := checkpoints.Load(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, history, 3)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "what is ai", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "refined: what is ai", history[1].Content)
	assert.Equal(t, RoleAssistant, history[2].Role)
	assert.Equal(t, "combined answer", history[2].Content)
}

func TestRunSecondTurnAppendsAfterFirstExchange(t *testing.T) {
	checkpoints := newMemoryCheckpointStore()
	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{answer: "web"},
		&fakeRetriever{},
		&fakeCompleter{answer: "final"},
		checkpoints,
		0,
	)

	first, err := svc.Run(context.Background(), "session-1", "first question")
	require.NoError(t, err)
	require.Equal(t, "session-1", first.SessionID)

	_, err = svc.Run(context.Background(), "session-1", "second question")
	require.NoError(t, err)

	history, found, err := checkpoints.Load(context.Background(), "session-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, history, 6)

	// the second turn's messages sit after the first turn's full exchange
	assert.Equal(t, "first question", history[0].Content)
	assert.Equal(t, "second question", history[3].Content)
	assert.Equal(t, "refined: second question", history[4].Content)
	assert.Equal(t, RoleAssistant, history[5].Role)
}

func TestRunFailFastOnResearchError(t *testing.T) {
	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{err: errBoom},
		&fakeRetriever{},
		&fakeCompleter{answer: "x"},
		newMemoryCheckpointStore(),
		0,
	)

	_, err := svc.Run(context.Background(), "s", "question")
	require.ErrorIs(t, err, ErrResearchFailed)
}

func TestRunFailFastOnVectorError(t *testing.T) {
	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{answer: "web"},
		&fakeRetriever{err: errBoom},
		&fakeCompleter{answer: "x"},
		newMemoryCheckpointStore(),
		0,
	)

	_, err := svc.Run(context.Background(), "s", "question")
	require.ErrorIs(t, err, ErrVectorFailed)
}

func TestRunFailFastDoesNotCheckpoint(t *testing.T) {
	checkpoints := newMemoryCheckpointStore()
	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{err: errBoom},
		&fakeRetriever{},
		&fakeCompleter{answer: "x"},
		checkpoints,
		0,
	)

	_, err := svc.Run(context.Background(), "s", "question")
	require.Error(t, err)

	_, found, err := checkpoints.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.False(t, found, "aborted invocation must not persist partial state")
}

func TestRunRefinerFailure(t *testing.T) {
	svc := newWorkflow(
		&fakeRefiner{err: errBoom},
		&fakeResearchAgent{answer: "web"},
		&fakeRetriever{},
		&fakeCompleter{answer: "x"},
		newMemoryCheckpointStore(),
		0,
	)

	_, err := svc.Run(context.Background(), "s", "question")
	require.ErrorIs(t, err, ErrRefinerFailed)
}

func TestRunJoinTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{answer: "web", block: block},
		&fakeRetriever{},
		&fakeCompleter{answer: "x"},
		newMemoryCheckpointStore(),
		50*time.Millisecond,
	)

	_, err := svc.Run(context.Background(), "s", "question")
	require.ErrorIs(t, err, ErrWorkflowTimeout)
}

func TestRunEmptyQuery(t *testing.T) {
	svc := newWorkflow(
		&fakeRefiner{},
		&fakeResearchAgent{},
		&fakeRetriever{},
		&fakeCompleter{},
		newMemoryCheckpointStore(),
		0,
	)

	_, err := svc.Run(context.Background(), "s", "  ")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestCombineSingleSourcePassthrough(t *testing.T) {
	llm := &fakeCompleter{answer: "should not be used"}
	svc := newWorkflow(&fakeRefiner{}, &fakeResearchAgent{}, &fakeRetriever{}, llm, newMemoryCheckpointStore(), 0)

	state := &WorkflowState{VectorResponse: "only the document answered"}
	assert.Equal(t, "only the document answered", svc.combine(context.Background(), "q", state))

	state = &WorkflowState{ResearchResponse: "only the web answered"}
	assert.Equal(t, "only the web answered", svc.combine(context.Background(), "q", state))

	assert.Empty(t, llm.completeCalls)
}

func TestCombineSynthesizesBothSources(t *testing.T) {
	llm := &fakeCompleter{answer: "reconciled"}
	svc := newWorkflow(&fakeRefiner{}, &fakeResearchAgent{}, &fakeRetriever{}, llm, newMemoryCheckpointStore(), 0)

	state := &WorkflowState{ResearchResponse: "web view", VectorResponse: "doc view"}
	got := svc.combine(context.Background(), "the question", state)

	assert.Equal(t, "reconciled", got)
	require.Len(t, llm.completeCalls, 1)
	prompt := llm.completeCalls[0][0].Content
	assert.Contains(t, prompt, "web view")
	assert.Contains(t, prompt, "doc view")
	assert.Contains(t, prompt, "the question")
}

func TestCombineConcatenatesWhenSynthesisFails(t *testing.T) {
	llm := &fakeCompleter{completeErr: errBoom}
	svc := newWorkflow(&fakeRefiner{}, &fakeResearchAgent{}, &fakeRetriever{}, llm, newMemoryCheckpointStore(), 0)

	state := &WorkflowState{ResearchResponse: "web view", VectorResponse: "doc view"}
	got := svc.combine(context.Background(), "q", state)

	assert.Contains(t, got, "web view")
	assert.Contains(t, got, "doc view")
}
