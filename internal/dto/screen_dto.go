package dto

import (
	"github.com/codescreenhq/codescreen-api/internal/models"
	"github.com/codescreenhq/codescreen-api/internal/session"
)

// MountScreenRequest opens a test screen for an attempt the candidate owns.
type MountScreenRequest struct {
	AttemptID uint   `json:"attempt_id" validate:"required,gt=0"`
	Language  string `json:"language,omitempty"`
}

// CodeUpdateRequest replaces the editor contents. An empty body is legal; the
// editor is the source of truth.
type CodeUpdateRequest struct {
	Code string `json:"code"`
}

// LanguageUpdateRequest switches the editor language, resetting the code to
// that language's default template.
type LanguageUpdateRequest struct {
	Language string `json:"language" validate:"required"`
}

// ScreenResponse is the screen identifier plus its presentation snapshot.
type ScreenResponse struct {
	ScreenID  string       `json:"screen_id"`
	AttemptID uint         `json:"attempt_id"`
	View      session.View `json:"view"`
}

// NewScreenResponse builds a screen response.
func NewScreenResponse(screenID string, attemptID uint, view session.View) ScreenResponse {
	return ScreenResponse{ScreenID: screenID, AttemptID: attemptID, View: view}
}

// SubmissionRecordResponse is one audit row of the attempt's grading history.
type SubmissionRecordResponse struct {
	ID         uint   `json:"id"`
	QuestionID string `json:"question_id"`
	Language   string `json:"language"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// NewSubmissionRecordResponse converts an audit model into its DTO.
func NewSubmissionRecordResponse(record models.SubmissionRecord) SubmissionRecordResponse {
	return SubmissionRecordResponse{
		ID:         record.ID,
		QuestionID: record.QuestionID,
		Language:   record.Language,
		Outcome:    record.Outcome,
		Error:      record.Error,
		CreatedAt:  record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
