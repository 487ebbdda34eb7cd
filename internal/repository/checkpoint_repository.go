package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"research-assistant/internal/model"
)

type CheckpointRepository struct {
	db *gorm.DB
}

func NewCheckpointRepository(db *gorm.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// GetBySessionID returns the checkpoint for the session, or nil when the
// session has no history yet.
func (r *CheckpointRepository) GetBySessionID(sessionID string) (*model.Checkpoint, error) {
	var checkpoint model.Checkpoint
	if err := r.db.Where("session_id = ?", sessionID).First(&checkpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get checkpoint failed: %w", err)
	}
	return &checkpoint, nil
}

// DeleteBySessionID removes the session's checkpoint. Deleting a session that
// never checkpointed is not an error.
func (r *CheckpointRepository) DeleteBySessionID(sessionID string) error {
	if err := r.db.Where("session_id = ?", sessionID).Delete(&model.Checkpoint{}).Error; err != nil {
		return fmt.Errorf("delete checkpoint failed: %w", err)
	}
	return nil
}

// Upsert overwrites the session's checkpoint with the latest full history.
func (r *CheckpointRepository) Upsert(checkpoint *model.Checkpoint) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"history", "updated_at"}),
	}).Create(checkpoint).Error
	if err != nil {
		return fmt.Errorf("upsert checkpoint failed: %w", err)
	}
	return nil
}
