package models

import "time"

// SubmissionRecord is the audit row written for every classified submission
// attempt, whatever its outcome. IdempotencyKey is the client-generated key
// sent to the grading service so retried requests can be deduplicated.
type SubmissionRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AttemptID      uint      `gorm:"not null;index" json:"attempt_id"`
	QuestionID     string    `gorm:"size:64;not null" json:"question_id"`
	Language       string    `gorm:"size:32;not null" json:"language"`
	Code           string    `gorm:"type:text" json:"code"`
	Outcome        string    `gorm:"size:32;not null" json:"outcome"`
	Error          string    `gorm:"type:text" json:"error"`
	IdempotencyKey string    `gorm:"size:64;uniqueIndex" json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}
