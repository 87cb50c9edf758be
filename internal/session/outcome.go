package session

import (
	"github.com/rs/zerolog"
)

// Question is the unit of work shown to the candidate. The grading service
// hands back the next one on every advance transition.
type Question struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// SubmissionRequest is the payload sent to the grading service. It is
// immutable once built: the code and language are captured at call time, not
// read live from the editor.
type SubmissionRequest struct {
	QuestionID     string   `json:"questionId"`
	Code           string   `json:"code"`
	Language       Language `json:"language"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
}

// SubmissionResult is the wire shape returned by the grading service. The
// three fields encode a tri-state: exactly one of Error, IsComplete or
// NextQuestion is supposed to carry the outcome. ClassifyResult turns this
// into the explicit Outcome union and absorbs contract violations.
type SubmissionResult struct {
	Error        string    `json:"error,omitempty"`
	IsComplete   bool      `json:"isComplete"`
	NextQuestion *Question `json:"nextQuestion,omitempty"`
}

// OutcomeKind discriminates the classified result of one submission.
type OutcomeKind string

const (
	// OutcomeFailure covers transport failures and business-level grading
	// errors alike; both surface the same retry path to the candidate.
	OutcomeFailure OutcomeKind = "failure"
	// OutcomeAdvance means more questions remain.
	OutcomeAdvance OutcomeKind = "advance"
	// OutcomeComplete means the attempt reached its final question.
	OutcomeComplete OutcomeKind = "complete"
)

// Outcome is the tagged union the coordinator branches on. Exactly one
// variant payload is populated, matching Kind.
type Outcome struct {
	Kind OutcomeKind
	// Err holds the failure message when Kind is OutcomeFailure.
	Err string
	// Next holds the upcoming question when Kind is OutcomeAdvance.
	Next *Question
}

// ClassifyResult collapses a grading response plus transport error into an
// Outcome. Results violating the mutual-exclusivity contract are never fatal:
// IsComplete wins over NextQuestion, a populated Error wins over both, and
// the anomaly is logged.
func ClassifyResult(result SubmissionResult, callErr error, logger zerolog.Logger) Outcome {
	if callErr != nil {
		return Outcome{Kind: OutcomeFailure, Err: callErr.Error()}
	}

	signals := 0
	if result.Error != "" {
		signals++
	}
	if result.IsComplete {
		signals++
	}
	if result.NextQuestion != nil {
		signals++
	}
	if signals > 1 {
		logger.Warn().
			Str("error", result.Error).
			Bool("is_complete", result.IsComplete).
			Bool("has_next_question", result.NextQuestion != nil).
			Msg("grading result carries multiple outcome signals")
	}

	switch {
	case result.Error != "":
		return Outcome{Kind: OutcomeFailure, Err: result.Error}
	case result.IsComplete:
		return Outcome{Kind: OutcomeComplete}
	case result.NextQuestion != nil:
		return Outcome{Kind: OutcomeAdvance, Next: result.NextQuestion}
	default:
		logger.Warn().Msg("grading result carries no outcome signal")
		return Outcome{Kind: OutcomeFailure, Err: "grading service returned an empty result"}
	}
}
