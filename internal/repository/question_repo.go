package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codescreenhq/codescreen-api/internal/models"
)

// QuestionRepository exposes persistence helpers for assessment questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	First(ctx context.Context) (models.Question, error)
	GetByPublicID(ctx context.Context, publicID string) (models.Question, error)
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) First(ctx context.Context) (models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).Order("position asc").First(&question).Error
	if err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) GetByPublicID(ctx context.Context, publicID string) (models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&question).Error
	if err != nil {
		return models.Question{}, err
	}
	return question, nil
}
