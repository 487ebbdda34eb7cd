package app

import (
	"context"
	"log"

	"research-assistant/internal/model"
)

// CheckpointRepository is the database surface the checkpoint service needs.
type CheckpointRepository interface {
	GetBySessionID(sessionID string) (*model.Checkpoint, error)
	Upsert(checkpoint *model.Checkpoint) error
	DeleteBySessionID(sessionID string) error
}

// HistoryCache is the optional read-through cache in front of the database
// checkpoint rows. Cache failures are absorbed; the database is the source of
// truth.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Turn, bool, error)
	SetHistory(ctx context.Context, sessionID string, turns []model.Turn) error
	DeleteHistory(ctx context.Context, sessionID string) error
}

// CheckpointService implements CheckpointStore on top of the checkpoint
// repository with a redis read-through cache. One record per session id,
// overwritten on every turn.
type CheckpointService struct {
	repo  CheckpointRepository
	cache HistoryCache
}

func NewCheckpointService(repo CheckpointRepository, cache HistoryCache) *CheckpointService {
	return &CheckpointService{repo: repo, cache: cache}
}

func (s *CheckpointService) Load(ctx context.Context, sessionID string) ([]model.Turn, bool, error) {
	if s.cache != nil {
		turns, hit, err := s.cache.GetHistory(ctx, sessionID)
		if err != nil {
			log.Printf("checkpoint cache read failed: %v", err)
		} else if hit {
			return turns, true, nil
		}
	}

	checkpoint, err := s.repo.GetBySessionID(sessionID)
	if err != nil {
		return nil, false, err
	}
	if checkpoint == nil {
		return nil, false, nil
	}

	turns := checkpoint.HistoryTurns()
	if s.cache != nil {
		if err := s.cache.SetHistory(ctx, sessionID, turns); err != nil {
			log.Printf("checkpoint cache fill failed: %v", err)
		}
	}
	return turns, true, nil
}

func (s *CheckpointService) Save(ctx context.Context, sessionID string, history []model.Turn) error {
	checkpoint := &model.Checkpoint{SessionID: sessionID}
	checkpoint.SetHistory(history)
	if err := s.repo.Upsert(checkpoint); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetHistory(ctx, sessionID, history); err != nil {
			log.Printf("checkpoint cache write failed: %v", err)
		}
	}
	return nil
}

// Delete drops the session's checkpoint row and invalidates its cache entry.
// The database delete runs first so a failed delete never leaves the cache
// ahead of the database.
func (s *CheckpointService) Delete(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.DeleteHistory(ctx, sessionID); err != nil {
			log.Printf("checkpoint cache invalidate failed: %v", err)
		}
	}
	return nil
}
