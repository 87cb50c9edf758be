package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/codescreenhq/codescreen-api/internal/session"
)

// resultSchema pins the grading service's wire contract. Responses are
// validated before classification so a malformed payload surfaces as a
// submission failure instead of silently corrupting the session.
const resultSchema = `{
	"type": "object",
	"properties": {
		"error": {"type": "string"},
		"isComplete": {"type": "boolean"},
		"nextQuestion": {
			"type": "object",
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"title": {"type": "string"},
				"prompt": {"type": "string"}
			},
			"required": ["id"]
		}
	}
}`

// Config carries the grading service endpoint settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the external grading service. It implements
// session.Grader.
type Client struct {
	baseURL    string
	httpClient *http.Client
	schema     *jsonschema.Schema
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient constructs a grading client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("grading service base url must not be empty")
	}

	schema, err := jsonschema.CompileString("grading_result.json", resultSchema)
	if err != nil {
		return nil, fmt.Errorf("compile grading result schema: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		schema:     schema,
		tracer:     otel.Tracer("github.com/codescreenhq/codescreen-api/internal/grading"),
		logger:     logger.With().Str("component", "grading_client").Logger(),
	}, nil
}

// SubmitCode sends one submission for grading and decodes the structured
// result. Any non-success status is reported as an error, which the caller
// treats the same as a populated error field.
func (c *Client) SubmitCode(ctx context.Context, req session.SubmissionRequest) (session.SubmissionResult, error) {
	ctx, span := c.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.String("question.id", req.QuestionID),
		attribute.String("submission.language", string(req.Language)),
	))
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return session.SubmissionResult{}, fmt.Errorf("encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/submissions", bytes.NewReader(payload))
	if err != nil {
		return session.SubmissionResult{}, fmt.Errorf("build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return session.SubmissionResult{}, fmt.Errorf("call grading service: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.SubmissionResult{}, fmt.Errorf("read grading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn().Int("status", resp.StatusCode).Str("question_id", req.QuestionID).Msg("grading service returned non-success status")
		return session.SubmissionResult{}, fmt.Errorf("grading service returned status %d", resp.StatusCode)
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return session.SubmissionResult{}, fmt.Errorf("decode grading response: %w", err)
	}
	if err := c.schema.Validate(raw); err != nil {
		return session.SubmissionResult{}, fmt.Errorf("grading response violates contract: %w", err)
	}

	var result session.SubmissionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return session.SubmissionResult{}, fmt.Errorf("decode grading response: %w", err)
	}
	return result, nil
}
