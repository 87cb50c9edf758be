package service

import (
	"context"
	"time"

	"github.com/codescreenhq/codescreen-api/internal/events"
	"github.com/codescreenhq/codescreen-api/internal/models"
	"github.com/codescreenhq/codescreen-api/internal/observability"
	"github.com/codescreenhq/codescreen-api/internal/session"
)

// recordingGrader decorates the grading client with the audit trail, the
// submission metrics and the failure event. Classification here is only for
// labelling; the coordinator classifies again for the actual transition.
type recordingGrader struct {
	service *screenService
	screen  *liveScreen
}

func (g *recordingGrader) SubmitCode(ctx context.Context, req session.SubmissionRequest) (session.SubmissionResult, error) {
	start := time.Now()
	result, err := g.service.grader.SubmitCode(ctx, req)
	observability.SubmitLatency().Observe(time.Since(start).Seconds())

	outcome := session.ClassifyResult(result, err, g.service.logger)
	observability.Submissions().WithLabelValues(string(outcome.Kind)).Inc()

	record := models.SubmissionRecord{
		AttemptID:      g.screen.attemptID,
		QuestionID:     req.QuestionID,
		Language:       string(req.Language),
		Code:           req.Code,
		Outcome:        string(outcome.Kind),
		Error:          outcome.Err,
		IdempotencyKey: req.IdempotencyKey,
	}
	if createErr := g.service.submissions.Create(ctx, &record); createErr != nil {
		g.service.logger.Error().Err(createErr).Str("question_id", req.QuestionID).Msg("failed to record submission")
	}

	if outcome.Kind == session.OutcomeFailure {
		g.service.publish(ctx, g.screen, events.TypeSubmissionFailed, req.QuestionID, outcome.Err)
	}
	return result, err
}

// screenRenderer receives advance transitions: it persists the progression
// pointer and announces the new question.
type screenRenderer struct {
	service *screenService
	screen  *liveScreen
}

func (r *screenRenderer) RenderQuestion(question session.Question) {
	ctx := context.Background()
	if err := r.service.attempts.SetCurrentQuestion(ctx, r.screen.attemptID, question.ID); err != nil {
		r.service.logger.Warn().Err(err).Uint("attempt_id", r.screen.attemptID).Msg("failed to persist question progression")
	}
	r.service.publish(ctx, r.screen, events.TypeQuestionAdvanced, question.ID, "")
}

// screenNavigator announces terminal route changes.
type screenNavigator struct {
	service *screenService
	screen  *liveScreen
}

func (n *screenNavigator) NavigateTo(route string) {
	n.service.publish(context.Background(), n.screen, events.TypeNavigation, "", route)
}

// attemptAuth adapts the attempt row to the auth collaborator the
// coordinator expects.
type attemptAuth struct {
	service *screenService
	screen  *liveScreen
}

func (a *attemptAuth) TestStatus(ctx context.Context) (session.TestStatus, error) {
	attempt, err := a.service.attempts.GetByID(ctx, a.screen.attemptID)
	if err != nil {
		return session.TestStatus{}, err
	}
	return session.TestStatus{AttemptsRemaining: attempt.AttemptsRemaining}, nil
}

func (a *attemptAuth) MarkTestAsCompleted(ctx context.Context) error {
	if err := a.service.attempts.MarkCompleted(ctx, a.screen.attemptID); err != nil {
		return err
	}
	a.service.publish(ctx, a.screen, events.TypeTestCompleted, "", "")
	return nil
}
