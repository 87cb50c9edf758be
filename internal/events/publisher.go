package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types emitted over the session lifecycle.
const (
	TypeScreenMounted    = "screen.mounted"
	TypeSubmissionFailed = "submission.failed"
	TypeQuestionAdvanced = "question.advanced"
	TypeReattemptOffered = "reattempt.offered"
	TypeReattemptStarted = "reattempt.started"
	TypeTestCompleted    = "test.completed"
	TypeNavigation       = "navigation"
)

// Event is the payload published for every observable session transition.
type Event struct {
	Type        string    `json:"type"`
	ScreenID    string    `json:"screen_id"`
	AttemptID   uint      `json:"attempt_id"`
	CandidateID uint      `json:"candidate_id"`
	QuestionID  string    `json:"question_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Publisher fans session lifecycle events out to NATS and a redis channel.
// Both sinks are optional; a nil connection is skipped. Publishing is
// best-effort: a sink failure is logged, never propagated, because the
// session transition has already happened.
type Publisher struct {
	nats        *nats.Conn
	natsSubject string
	redis       *redis.Client
	channel     string
	logger      zerolog.Logger
}

// NewPublisher constructs an event publisher. channelBase names the redis
// channel and, with dots instead of colons, the NATS subject prefix.
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) *Publisher {
	subject := ""
	channel := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".sessions"
		channel = channelBase + ":sessions"
	}

	return &Publisher{
		nats:        natsConn,
		natsSubject: subject,
		redis:       redisClient,
		channel:     channel,
		logger:      logger.With().Str("component", "session_events").Logger(),
	}
}

// Publish emits one event to every configured sink.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("type", event.Type).Msg("failed to encode session event")
		return
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject+"."+event.Type, payload); err != nil {
			p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish session event to nats")
		}
	}

	if p.redis != nil && p.channel != "" {
		if err := p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish session event to redis")
		}
	}
}
