package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codescreenhq/codescreen-api/internal/models"
)

// TestAttemptRepository exposes persistence helpers for test attempts.
type TestAttemptRepository interface {
	Create(ctx context.Context, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, id uint) (models.TestAttempt, error)
	SetCurrentQuestion(ctx context.Context, id uint, questionID string) error
	MarkCompleted(ctx context.Context, id uint) error
}

// NewTestAttemptRepository constructs a test attempt repository.
func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

type testAttemptRepository struct {
	db *gorm.DB
}

func (r *testAttemptRepository) Create(ctx context.Context, attempt *models.TestAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *testAttemptRepository) GetByID(ctx context.Context, id uint) (models.TestAttempt, error) {
	var attempt models.TestAttempt
	err := r.db.WithContext(ctx).First(&attempt, id).Error
	if err != nil {
		return models.TestAttempt{}, err
	}
	return attempt, nil
}

func (r *testAttemptRepository) SetCurrentQuestion(ctx context.Context, id uint, questionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("id = ?", id).
		Update("current_question_id", questionID).Error
}

// MarkCompleted flips the attempt into its terminal status. Marking an
// already-completed attempt is a no-op, not an error.
func (r *testAttemptRepository) MarkCompleted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("id = ?", id).
		Update("status", models.TestAttemptStatusCompleted).Error
}
