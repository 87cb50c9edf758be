package models

import "time"

// TestAttempt status values.
const (
	TestAttemptStatusInProgress = "in_progress"
	TestAttemptStatusCompleted  = "completed"
)

// TestAttempt is one full pass of a candidate through the question sequence.
// AttemptsRemaining counts the additional passes the candidate may still be
// granted after this one.
type TestAttempt struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CandidateID       uint      `gorm:"not null;index" json:"candidate_id"`
	Status            string    `gorm:"size:32;not null" json:"status"`
	AttemptsRemaining int       `gorm:"not null;default:0" json:"attempts_remaining"`
	CurrentQuestionID string    `gorm:"size:64" json:"current_question_id"`
	// CarriedCode seeds the editor when the attempt was spawned from a
	// reattempt; empty means the language default template is used.
	CarriedCode string    `gorm:"type:text" json:"carried_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsCompleted reports whether the attempt reached its terminal state.
func (a TestAttempt) IsCompleted() bool {
	return a.Status == TestAttemptStatusCompleted
}
