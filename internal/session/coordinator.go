package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CompletionRoute is the fixed route candidates land on after a terminal
// transition.
const CompletionRoute = "/test/complete"

// Grader is the external grading collaborator. Any transport error is treated
// the same as a business-level error in the response body.
type Grader interface {
	SubmitCode(ctx context.Context, req SubmissionRequest) (SubmissionResult, error)
}

// Renderer receives the next question on every advance transition.
type Renderer interface {
	RenderQuestion(question Question)
}

// Navigator performs route changes; it is invoked exactly once per terminal
// transition.
type Navigator interface {
	NavigateTo(route string)
}

// TestStatus is the slice of auth state the coordinator reads.
type TestStatus struct {
	AttemptsRemaining int
}

// AuthSession exposes the attempt budget and the completion flip. Completion
// is idempotent: marking an already-completed test must not error.
type AuthSession interface {
	TestStatus(ctx context.Context) (TestStatus, error)
	MarkTestAsCompleted(ctx context.Context) error
}

// RestartFunc is invoked when the candidate chooses to reattempt. The code
// argument carries the source the candidate had submitted, so the next
// attempt can start from it.
type RestartFunc func(restart bool, code string)

// Dialog names the single dialog that may be open. Modeling this as one
// tagged value keeps the dialogs mutually exclusive by construction.
type Dialog string

const (
	DialogNone      Dialog = "none"
	DialogError     Dialog = "error"
	DialogReattempt Dialog = "reattempt"
)

// Config carries the collaborators and initial state for one screen.
type Config struct {
	Question Question
	Language Language
	// InitialCode seeds the editor when non-empty; otherwise the language
	// default template is used.
	InitialCode    string
	Grader         Grader
	Renderer       Renderer
	Navigator      Navigator
	Auth           AuthSession
	OnTestComplete RestartFunc
	Logger         zerolog.Logger
}

// View is the presentation snapshot of a screen. It is purely derived state;
// clients render it without further logic.
type View struct {
	Question         Question `json:"question"`
	Code             string   `json:"code"`
	Language         Language `json:"language"`
	Submitting       bool     `json:"submitting"`
	Dialog           Dialog   `json:"dialog"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	Completed        bool     `json:"completed"`
	RestartRequested bool     `json:"restart_requested"`
	Route            string   `json:"route,omitempty"`
}

// Coordinator owns the progression state of one test screen: the editor
// contents, the in-flight submission guard, the active dialog and the
// terminal flags. All transitions are serialized through its mutex; the
// submitting flag remains the sole guard against a second concurrent
// submission, while edits during an in-flight submission stay permitted.
type Coordinator struct {
	mu sync.Mutex

	grader         Grader
	renderer       Renderer
	navigator      Navigator
	auth           AuthSession
	onTestComplete RestartFunc
	logger         zerolog.Logger

	question   Question
	code       string
	language   Language
	submitting bool
	dialog     Dialog
	lastError  string

	// pendingCode holds the source submitted on the completing attempt while
	// the reattempt dialog waits for the candidate's choice.
	pendingCode string

	completed        bool
	restartRequested bool
	route            string
	closed           bool
}

// NewCoordinator mounts a screen.
func NewCoordinator(cfg Config) *Coordinator {
	code := cfg.InitialCode
	if code == "" {
		code = DefaultTemplate(cfg.Language)
	}

	return &Coordinator{
		grader:         cfg.Grader,
		renderer:       cfg.Renderer,
		navigator:      cfg.Navigator,
		auth:           cfg.Auth,
		onTestComplete: cfg.OnTestComplete,
		logger:         cfg.Logger.With().Str("component", "session_coordinator").Logger(),
		question:       cfg.Question,
		code:           code,
		language:       cfg.Language,
		dialog:         DialogNone,
	}
}

// SetCode replaces the editor contents unconditionally; the editor is the
// source of truth while focused.
func (c *Coordinator) SetCode(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.openLocked(); err != nil {
		return err
	}
	c.code = code
	return nil
}

// SetLanguage switches the editor language and resets the code to that
// language's default template. Unsaved code is discarded without
// confirmation. An open dialog must be resolved first.
func (c *Coordinator) SetLanguage(language Language) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.openLocked(); err != nil {
		return err
	}
	if c.dialog != DialogNone {
		return ErrDialogPending
	}
	if _, ok := defaultTemplates[language]; !ok {
		return ErrUnsupportedLanguage
	}

	c.language = language
	c.code = DefaultTemplate(language)
	return nil
}

// Submit runs one full submission attempt: guard, grade, classify,
// transition. An open dialog blocks submission: the reattempt offer has no
// edge back to submitting, and an error dialog must be dismissed before a
// retry. The grading call happens outside the lock; a response arriving
// after Close is discarded without touching state. The submitting flag is
// released on every exit path.
func (c *Coordinator) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.openLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.dialog != DialogNone {
		c.mu.Unlock()
		return ErrDialogPending
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.submitting = true
	req := SubmissionRequest{
		QuestionID:     c.question.ID,
		Code:           c.code,
		Language:       c.language,
		IdempotencyKey: uuid.NewString(),
	}
	c.mu.Unlock()

	result, callErr := c.grader.SubmitCode(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.submitting = false }()

	if c.closed {
		c.logger.Debug().Str("question_id", req.QuestionID).Msg("discarding grading result for closed screen")
		return nil
	}

	outcome := ClassifyResult(result, callErr, c.logger)
	switch outcome.Kind {
	case OutcomeFailure:
		c.dialog = DialogError
		c.lastError = outcome.Err
		c.logger.Info().Str("question_id", req.QuestionID).Str("reason", outcome.Err).Msg("submission failed")
	case OutcomeAdvance:
		c.code = DefaultTemplate(c.language)
		c.question = *outcome.Next
		c.renderer.RenderQuestion(*outcome.Next)
		c.logger.Info().Str("question_id", outcome.Next.ID).Msg("advanced to next question")
	case OutcomeComplete:
		c.resolveCompletionLocked(ctx, req.Code)
	}
	return nil
}

// resolveCompletionLocked decides between offering a reattempt and the
// automatic terminal transition, based on the freshly read attempt budget.
func (c *Coordinator) resolveCompletionLocked(ctx context.Context, submittedCode string) {
	status, err := c.auth.TestStatus(ctx)
	if err != nil {
		// Without the attempt budget the terminal decision cannot be made;
		// surface it like any other submission failure so the candidate can
		// retry.
		c.dialog = DialogError
		c.lastError = "could not read test status: " + err.Error()
		c.logger.Error().Err(err).Msg("failed to read test status on completion")
		return
	}

	if status.AttemptsRemaining > 0 {
		c.dialog = DialogReattempt
		c.pendingCode = submittedCode
		c.logger.Info().Int("attempts_remaining", status.AttemptsRemaining).Msg("offering reattempt")
		return
	}

	// No attempts left: no dialog, straight to the terminal transition.
	c.finishLocked(ctx)
	c.logger.Info().Msg("test completed, no attempts remaining")
}

// ChooseReattempt handles the "Reattempt" dialog choice: the restart callback
// receives the code submitted on the completing attempt and the screen
// becomes terminal.
func (c *Coordinator) ChooseReattempt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrScreenClosed
	}
	if c.dialog != DialogReattempt {
		return ErrNoDialog
	}

	c.dialog = DialogNone
	c.completed = true
	c.restartRequested = true
	if c.onTestComplete != nil {
		c.onTestComplete(true, c.pendingCode)
	}
	c.logger.Info().Msg("candidate chose reattempt")
	return nil
}

// ChooseFinish handles the "Finish Test" dialog choice; it is the same
// terminal transition as the zero-attempts case, just candidate-initiated.
func (c *Coordinator) ChooseFinish(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrScreenClosed
	}
	if c.dialog != DialogReattempt {
		return ErrNoDialog
	}

	c.dialog = DialogNone
	c.finishLocked(ctx)
	c.logger.Info().Msg("candidate finished the test")
	return nil
}

func (c *Coordinator) finishLocked(ctx context.Context) {
	if err := c.auth.MarkTestAsCompleted(ctx); err != nil {
		// MarkTestAsCompleted is idempotent, so the caller can reconcile
		// later; the screen still terminates.
		c.logger.Error().Err(err).Msg("failed to mark test as completed")
	}
	c.completed = true
	c.route = CompletionRoute
	c.navigator.NavigateTo(CompletionRoute)
}

// DismissError closes the error dialog, leaving code and language untouched
// so the candidate can retry without retyping.
func (c *Coordinator) DismissError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrScreenClosed
	}
	if c.dialog != DialogError {
		return ErrNoDialog
	}
	c.dialog = DialogNone
	c.lastError = ""
	return nil
}

// Close unmounts the screen. A grading response still in flight will be
// discarded when it lands.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// View returns the presentation snapshot for the screen.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		Question:         c.question,
		Code:             c.code,
		Language:         c.language,
		Submitting:       c.submitting,
		Dialog:           c.dialog,
		ErrorMessage:     c.lastError,
		Completed:        c.completed,
		RestartRequested: c.restartRequested,
		Route:            c.route,
	}
}

// openLocked rejects mutations once the screen is terminal or unmounted.
func (c *Coordinator) openLocked() error {
	if c.closed {
		return ErrScreenClosed
	}
	if c.completed {
		return ErrScreenCompleted
	}
	return nil
}
