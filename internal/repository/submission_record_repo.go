package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codescreenhq/codescreen-api/internal/models"
)

// SubmissionRecordRepository persists the audit trail of grading attempts.
type SubmissionRecordRepository interface {
	Create(ctx context.Context, record *models.SubmissionRecord) error
	ListByAttempt(ctx context.Context, attemptID uint) ([]models.SubmissionRecord, error)
}

// NewSubmissionRecordRepository constructs a submission record repository.
func NewSubmissionRecordRepository(db *gorm.DB) SubmissionRecordRepository {
	return &submissionRecordRepository{db: db}
}

type submissionRecordRepository struct {
	db *gorm.DB
}

func (r *submissionRecordRepository) Create(ctx context.Context, record *models.SubmissionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *submissionRecordRepository) ListByAttempt(ctx context.Context, attemptID uint) ([]models.SubmissionRecord, error) {
	var records []models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
