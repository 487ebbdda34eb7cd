package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"research-assistant/internal/index"
)

const defaultIngestTimeout = 5 * time.Minute

var (
	ErrDocumentNotFound = errors.New("document file not found")
	ErrIngestionRunning = errors.New("an ingestion job is already running")
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobTimedOut  JobStatus = "timedOut"
)

// IngestionJob is the transient record of one background indexing run.
type IngestionJob struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Status   JobStatus `json:"status"`

	filePath string
}

// DocumentIndexer builds a new corpus from raw document bytes.
type DocumentIndexer interface {
	Index(ctx context.Context, data []byte) (*index.Corpus, error)
}

// IngestService runs the indexer as a cancellable background job with a hard
// timeout. A failed or timed-out job leaves the previous corpus untouched;
// the uploaded temp file is always removed, success or failure.
type IngestService struct {
	store     *index.Store
	indexer   DocumentIndexer
	uploadDir string
	timeout   time.Duration

	mu  sync.Mutex
	job *IngestionJob
}

func NewIngestService(store *index.Store, indexer DocumentIndexer, uploadDir string, timeout time.Duration) *IngestService {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if timeout <= 0 {
		timeout = defaultIngestTimeout
	}
	return &IngestService{
		store:     store,
		indexer:   indexer,
		uploadDir: uploadDir,
		timeout:   timeout,
	}
}

// Start writes the uploaded bytes to a temp file and launches the background
// indexing job, returning the job id. A second Start while a job is running
// is rejected.
func (s *IngestService) Start(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrDocumentNotFound
	}

	s.mu.Lock()
	if s.job != nil && s.job.Status == JobRunning {
		s.mu.Unlock()
		return "", ErrIngestionRunning
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("create upload dir failed: %w", err)
	}

	jobID := uuid.NewString()
	filePath := filepath.Join(s.uploadDir, jobID+"_"+filepath.Base(filename))
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("write upload file failed: %w", err)
	}

	job := &IngestionJob{
		ID:       jobID,
		Filename: filename,
		Status:   JobRunning,
		filePath: filePath,
	}
	s.job = job
	s.mu.Unlock()

	go s.run(job)
	return jobID, nil
}

func (s *IngestService) run(job *IngestionJob) {
	defer func() {
		if err := os.Remove(job.filePath); err != nil && !os.IsNotExist(err) {
			log.Printf("remove upload file %s failed: %v", job.filePath, err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := os.ReadFile(job.filePath)
	if err != nil {
		log.Printf("read upload file for job %s failed: %v", job.ID, err)
		s.finish(job, JobFailed)
		return
	}

	corpus, err := s.indexer.Index(ctx, data)
	if err != nil {
		status := JobFailed
		if ctx.Err() != nil {
			status = JobTimedOut
		}
		log.Printf("ingestion job %s failed: %v", job.ID, err)
		// Previous corpus stays as it was; a half-indexed document is
		// never visible to concurrent queries.
		s.finish(job, status)
		return
	}

	s.store.Swap(corpus)
	s.finish(job, JobSucceeded)
	log.Printf("ingestion job %s succeeded: %d segments indexed", job.ID, corpus.Len())
}

func (s *IngestService) finish(job *IngestionJob, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Status = status
}

// Ready reports whether a document is indexed and searchable.
func (s *IngestService) Ready() bool {
	return s.store.Ready()
}

// Status returns the most recent job's status, if any job has been started.
func (s *IngestService) Status() (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return "", false
	}
	return s.job.Status, true
}

// Reset clears the corpus, its image assets and the ready state in one step.
// Session checkpoints are deliberately left alone.
func (s *IngestService) Reset() {
	s.store.Reset()
}

// Wait blocks until the current job (if any) has settled. Test hook and
// shutdown aid; the HTTP host never calls it on the request path.
func (s *IngestService) Wait(pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}
	for {
		s.mu.Lock()
		running := s.job != nil && s.job.Status == JobRunning
		s.mu.Unlock()
		if !running {
			return
		}
		time.Sleep(pollInterval)
	}
}
