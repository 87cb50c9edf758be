package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codescreenhq/codescreen-api/internal/dto"
	"github.com/codescreenhq/codescreen-api/internal/events"
	"github.com/codescreenhq/codescreen-api/internal/models"
	"github.com/codescreenhq/codescreen-api/internal/observability"
	"github.com/codescreenhq/codescreen-api/internal/repository"
	"github.com/codescreenhq/codescreen-api/internal/session"
)

// ErrScreenNotFound indicates the screen id maps to no mounted screen.
var ErrScreenNotFound = errors.New("screen not found")

// ErrAttemptNotFound indicates the attempt cannot be located.
var ErrAttemptNotFound = errors.New("test attempt not found")

// ErrAttemptCompleted indicates the attempt already reached its terminal
// status and cannot host a screen.
var ErrAttemptCompleted = errors.New("test attempt already completed")

// ErrScreenForbidden indicates the caller does not own the screen's attempt.
var ErrScreenForbidden = errors.New("forbidden")

// ErrNoQuestions indicates the question bank is empty.
var ErrNoQuestions = errors.New("no questions configured")

// ScreenService hosts live test screens and drives the progression protocol
// for each of them.
type ScreenService interface {
	Mount(ctx context.Context, candidateID uint, payload dto.MountScreenRequest) (dto.ScreenResponse, error)
	View(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error)
	SetCode(ctx context.Context, screenID string, candidateID uint, code string) (dto.ScreenResponse, error)
	SetLanguage(ctx context.Context, screenID string, candidateID uint, language string) (dto.ScreenResponse, error)
	Submit(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error)
	ChooseReattempt(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error)
	ChooseFinish(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error)
	DismissError(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error)
	Unmount(ctx context.Context, screenID string, candidateID uint) error
	ListSubmissions(ctx context.Context, screenID string, candidateID uint) ([]dto.SubmissionRecordResponse, error)
	Subscribe(screenID string, candidateID uint) (<-chan session.View, func(), error)
}

// ScreenConfig carries the tunables for hosted screens.
type ScreenConfig struct {
	AutosaveTTL     time.Duration
	DefaultLanguage session.Language
}

type liveScreen struct {
	id          string
	attemptID   uint
	candidateID uint
	coordinator *session.Coordinator

	mu          sync.Mutex
	subscribers map[chan session.View]struct{}
}

type screenService struct {
	attempts    repository.TestAttemptRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRecordRepository
	grader      session.Grader
	cache       *redis.Client
	publisher   *events.Publisher
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	config      ScreenConfig

	mu      sync.RWMutex
	screens map[string]*liveScreen
}

// NewScreenService constructs the screen host.
func NewScreenService(attempts repository.TestAttemptRepository, questions repository.QuestionRepository, submissions repository.SubmissionRecordRepository, grader session.Grader, cache *redis.Client, publisher *events.Publisher, logger zerolog.Logger, cfg ScreenConfig) ScreenService {
	if cfg.AutosaveTTL <= 0 {
		cfg.AutosaveTTL = 24 * time.Hour
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = session.LanguagePython
	}

	return &screenService{
		attempts:    attempts,
		questions:   questions,
		submissions: submissions,
		grader:      grader,
		cache:       cache,
		publisher:   publisher,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "screen_service").Logger(),
		config:      cfg,
		screens:     make(map[string]*liveScreen),
	}
}

func (s *screenService) Mount(ctx context.Context, candidateID uint, payload dto.MountScreenRequest) (dto.ScreenResponse, error) {
	attempt, err := s.attempts.GetByID(ctx, payload.AttemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScreenResponse{}, ErrAttemptNotFound
		}
		return dto.ScreenResponse{}, err
	}
	if attempt.CandidateID != candidateID {
		return dto.ScreenResponse{}, ErrScreenForbidden
	}
	if attempt.IsCompleted() {
		return dto.ScreenResponse{}, ErrAttemptCompleted
	}

	question, err := s.currentQuestion(ctx, attempt)
	if err != nil {
		return dto.ScreenResponse{}, err
	}

	language := s.config.DefaultLanguage
	if payload.Language != "" {
		language, err = session.ParseLanguage(payload.Language)
		if err != nil {
			return dto.ScreenResponse{}, err
		}
	}

	screen := &liveScreen{
		id:          uuid.NewString(),
		attemptID:   attempt.ID,
		candidateID: candidateID,
		subscribers: make(map[chan session.View]struct{}),
	}

	screen.coordinator = session.NewCoordinator(session.Config{
		Question:       s.presentQuestion(question),
		Language:       language,
		InitialCode:    s.storedCode(ctx, attempt),
		Grader:         &recordingGrader{service: s, screen: screen},
		Renderer:       &screenRenderer{service: s, screen: screen},
		Navigator:      &screenNavigator{service: s, screen: screen},
		Auth:           &attemptAuth{service: s, screen: screen},
		OnTestComplete: s.restartFunc(screen),
		Logger:         s.logger.With().Str("screen_id", screen.id).Logger(),
	})

	s.mu.Lock()
	s.screens[screen.id] = screen
	s.mu.Unlock()
	observability.ActiveScreens().Inc()

	s.publish(ctx, screen, events.TypeScreenMounted, question.PublicID, "")
	s.logger.Info().Str("screen_id", screen.id).Uint("attempt_id", attempt.ID).Msg("screen mounted")

	return dto.NewScreenResponse(screen.id, screen.attemptID, screen.coordinator.View()), nil
}

func (s *screenService) View(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	return dto.NewScreenResponse(screen.id, screen.attemptID, screen.coordinator.View()), nil
}

func (s *screenService) SetCode(ctx context.Context, screenID string, candidateID uint, code string) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	if err := screen.coordinator.SetCode(code); err != nil {
		return dto.ScreenResponse{}, err
	}
	s.autosave(ctx, screen.attemptID, code)
	return s.snapshot(screen), nil
}

func (s *screenService) SetLanguage(ctx context.Context, screenID string, candidateID uint, language string) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	parsed, err := session.ParseLanguage(language)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	if err := screen.coordinator.SetLanguage(parsed); err != nil {
		return dto.ScreenResponse{}, err
	}
	// The switch reset the editor; keep the autosave slot consistent.
	s.autosave(ctx, screen.attemptID, session.DefaultTemplate(parsed))
	return s.snapshot(screen), nil
}

func (s *screenService) Submit(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	if err := screen.coordinator.Submit(ctx); err != nil {
		return dto.ScreenResponse{}, err
	}

	response := s.snapshot(screen)
	// An advance resets the editor; the autosave slot must follow so a
	// remount does not resurrect the previous question's code.
	s.autosave(ctx, screen.attemptID, response.View.Code)
	if response.View.Dialog == session.DialogReattempt {
		s.publish(ctx, screen, events.TypeReattemptOffered, response.View.Question.ID, "")
	}
	return response, nil
}

func (s *screenService) ChooseReattempt(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	if err := screen.coordinator.ChooseReattempt(); err != nil {
		return dto.ScreenResponse{}, err
	}
	return s.snapshot(screen), nil
}

func (s *screenService) ChooseFinish(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	if err := screen.coordinator.ChooseFinish(ctx); err != nil {
		return dto.ScreenResponse{}, err
	}
	return s.snapshot(screen), nil
}

func (s *screenService) DismissError(ctx context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return dto.ScreenResponse{}, err
	}
	if err := screen.coordinator.DismissError(); err != nil {
		return dto.ScreenResponse{}, err
	}
	return s.snapshot(screen), nil
}

func (s *screenService) Unmount(ctx context.Context, screenID string, candidateID uint) error {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return err
	}

	screen.coordinator.Close()

	s.mu.Lock()
	delete(s.screens, screenID)
	s.mu.Unlock()
	observability.ActiveScreens().Dec()

	screen.mu.Lock()
	for subscriber := range screen.subscribers {
		close(subscriber)
	}
	screen.subscribers = make(map[chan session.View]struct{})
	screen.mu.Unlock()

	s.logger.Info().Str("screen_id", screenID).Msg("screen unmounted")
	return nil
}

func (s *screenService) ListSubmissions(ctx context.Context, screenID string, candidateID uint) ([]dto.SubmissionRecordResponse, error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return nil, err
	}

	records, err := s.submissions.ListByAttempt(ctx, screen.attemptID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewSubmissionRecordResponse(record))
	}
	return responses, nil
}

// Subscribe registers an observer for the screen's view snapshots. The
// returned cancel func must be called when the observer goes away.
func (s *screenService) Subscribe(screenID string, candidateID uint) (<-chan session.View, func(), error) {
	screen, err := s.lookup(screenID, candidateID)
	if err != nil {
		return nil, nil, err
	}

	channel := make(chan session.View, 16)
	screen.mu.Lock()
	screen.subscribers[channel] = struct{}{}
	screen.mu.Unlock()

	cancel := func() {
		screen.mu.Lock()
		if _, ok := screen.subscribers[channel]; ok {
			delete(screen.subscribers, channel)
			close(channel)
		}
		screen.mu.Unlock()
	}
	return channel, cancel, nil
}

func (s *screenService) lookup(screenID string, candidateID uint) (*liveScreen, error) {
	s.mu.RLock()
	screen, ok := s.screens[screenID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrScreenNotFound
	}
	if screen.candidateID != candidateID {
		return nil, ErrScreenForbidden
	}
	return screen, nil
}

// snapshot reads the current view, fans it out to subscribers and wraps it
// into the response DTO.
func (s *screenService) snapshot(screen *liveScreen) dto.ScreenResponse {
	view := screen.coordinator.View()

	screen.mu.Lock()
	for subscriber := range screen.subscribers {
		select {
		case subscriber <- view:
		default:
			// Slow observer; drop the snapshot rather than stall the screen.
		}
	}
	screen.mu.Unlock()

	return dto.NewScreenResponse(screen.id, screen.attemptID, view)
}

func (s *screenService) currentQuestion(ctx context.Context, attempt models.TestAttempt) (models.Question, error) {
	if attempt.CurrentQuestionID != "" {
		question, err := s.questions.GetByPublicID(ctx, attempt.CurrentQuestionID)
		if err == nil {
			return question, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, err
		}
		s.logger.Warn().Str("question_id", attempt.CurrentQuestionID).Msg("attempt points at unknown question, falling back to first")
	}

	question, err := s.questions.First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrNoQuestions
		}
		return models.Question{}, err
	}

	if err := s.attempts.SetCurrentQuestion(ctx, attempt.ID, question.PublicID); err != nil {
		s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to persist current question")
	}
	return question, nil
}

// presentQuestion maps a stored question onto the screen type, sanitizing
// the prompt before it reaches a browser.
func (s *screenService) presentQuestion(question models.Question) session.Question {
	return session.Question{
		ID:     question.PublicID,
		Title:  question.Title,
		Prompt: s.sanitizer.Sanitize(question.Prompt),
	}
}

func autosaveKey(attemptID uint) string {
	return fmt.Sprintf("autosave:attempt:%d", attemptID)
}

// storedCode resolves the caller-supplied initial code for a mount: the
// autosave slot wins, then the code carried over from a reattempt. An empty
// result means the language default template applies.
func (s *screenService) storedCode(ctx context.Context, attempt models.TestAttempt) string {
	if s.cache != nil {
		code, err := s.cache.Get(ctx, autosaveKey(attempt.ID)).Result()
		if err == nil && code != "" {
			return code
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to read autosaved code")
		}
	}
	return attempt.CarriedCode
}

func (s *screenService) autosave(ctx context.Context, attemptID uint, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, autosaveKey(attemptID), code, s.config.AutosaveTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("attempt_id", attemptID).Msg("failed to autosave code")
	}
}

func (s *screenService) publish(ctx context.Context, screen *liveScreen, eventType, questionID, detail string) {
	s.publisher.Publish(ctx, events.Event{
		Type:        eventType,
		ScreenID:    screen.id,
		AttemptID:   screen.attemptID,
		CandidateID: screen.candidateID,
		QuestionID:  questionID,
		Detail:      detail,
	})
}

// restartFunc builds the reattempt callback: it spawns the successor attempt
// with one fewer attempt remaining and seeds it with the code the candidate
// had submitted.
func (s *screenService) restartFunc(screen *liveScreen) session.RestartFunc {
	return func(restart bool, code string) {
		if !restart {
			return
		}
		ctx := context.Background()

		previous, err := s.attempts.GetByID(ctx, screen.attemptID)
		if err != nil {
			s.logger.Error().Err(err).Uint("attempt_id", screen.attemptID).Msg("failed to load attempt for restart")
			return
		}

		remaining := previous.AttemptsRemaining - 1
		if remaining < 0 {
			remaining = 0
		}
		successor := models.TestAttempt{
			CandidateID:       previous.CandidateID,
			Status:            models.TestAttemptStatusInProgress,
			AttemptsRemaining: remaining,
			CarriedCode:       code,
		}
		if err := s.attempts.Create(ctx, &successor); err != nil {
			s.logger.Error().Err(err).Uint("attempt_id", screen.attemptID).Msg("failed to create reattempt")
			return
		}

		s.autosave(ctx, successor.ID, code)
		s.publish(ctx, screen, events.TypeReattemptStarted, "", fmt.Sprintf("attempt:%d", successor.ID))
		s.logger.Info().Uint("attempt_id", successor.ID).Int("attempts_remaining", remaining).Msg("reattempt started")
	}
}
