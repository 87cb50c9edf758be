package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/codescreenhq/codescreen-api/internal/dto"
	"github.com/codescreenhq/codescreen-api/internal/handler"
	"github.com/codescreenhq/codescreen-api/internal/service"
	"github.com/codescreenhq/codescreen-api/internal/session"
)

type mockScreenService struct {
	response dto.ScreenResponse
	records  []dto.SubmissionRecordResponse
	err      error

	lastCandidateID uint
	lastScreenID    string
	lastPayload     dto.MountScreenRequest
	lastCode        string
	lastLanguage    string
}

func (m *mockScreenService) Mount(_ context.Context, candidateID uint, payload dto.MountScreenRequest) (dto.ScreenResponse, error) {
	m.lastCandidateID = candidateID
	m.lastPayload = payload
	return m.response, m.err
}

func (m *mockScreenService) View(_ context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.response, m.err
}

func (m *mockScreenService) SetCode(_ context.Context, screenID string, candidateID uint, code string) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	m.lastCode = code
	return m.response, m.err
}

func (m *mockScreenService) SetLanguage(_ context.Context, screenID string, candidateID uint, language string) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	m.lastLanguage = language
	return m.response, m.err
}

func (m *mockScreenService) Submit(_ context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.response, m.err
}

func (m *mockScreenService) ChooseReattempt(_ context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.response, m.err
}

func (m *mockScreenService) ChooseFinish(_ context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.response, m.err
}

func (m *mockScreenService) DismissError(_ context.Context, screenID string, candidateID uint) (dto.ScreenResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.response, m.err
}

func (m *mockScreenService) Unmount(_ context.Context, screenID string, candidateID uint) error {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.err
}

func (m *mockScreenService) ListSubmissions(_ context.Context, screenID string, candidateID uint) ([]dto.SubmissionRecordResponse, error) {
	m.lastScreenID = screenID
	m.lastCandidateID = candidateID
	return m.records, m.err
}

func (m *mockScreenService) Subscribe(string, uint) (<-chan session.View, func(), error) {
	return nil, nil, errors.New("not implemented")
}

func newScreenApp(svc service.ScreenService, candidateID uint) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/screens", func(c *fiber.Ctx) error {
		if candidateID != 0 {
			c.Locals("candidate_id", candidateID)
		}
		return c.Next()
	})
	validate := validator.New(validator.WithRequiredStructEnabled())
	handler.NewScreenHandler(svc, validate, zerolog.New(io.Discard)).Register(group)
	return app
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	return req
}

func decodeScreenBody(t *testing.T, resp *http.Response) (bool, string, dto.ScreenResponse) {
	t.Helper()
	var body struct {
		Success bool               `json:"success"`
		Data    dto.ScreenResponse `json:"data"`
		Message string             `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Success, body.Message, body.Data
}

func TestScreenHandler_MountSuccess(t *testing.T) {
	svc := &mockScreenService{response: dto.ScreenResponse{
		ScreenID:  "screen-1",
		AttemptID: 7,
		View: session.View{
			Question: session.Question{ID: "q-1", Title: "Two Sum"},
			Code:     "# starter",
			Language: session.LanguagePython,
		},
	}}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens", dto.MountScreenRequest{AttemptID: 7}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	success, message, data := decodeScreenBody(t, resp)
	require.True(t, success)
	require.Equal(t, "screen mounted", message)
	require.Equal(t, "screen-1", data.ScreenID)
	require.Equal(t, "q-1", data.View.Question.ID)
	require.Equal(t, uint(42), svc.lastCandidateID)
	require.Equal(t, uint(7), svc.lastPayload.AttemptID)
}

func TestScreenHandler_MountRequiresAuth(t *testing.T) {
	svc := &mockScreenService{}
	app := newScreenApp(svc, 0)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens", dto.MountScreenRequest{AttemptID: 7}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestScreenHandler_MountRejectsMissingAttempt(t *testing.T) {
	svc := &mockScreenService{}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens", map[string]any{"language": "python"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.Equal(t, "validation failed", body.Message)
	require.NotEmpty(t, body.Details)
	require.Contains(t, body.Details[0], "AttemptID")
}

func TestScreenHandler_ViewNotFound(t *testing.T) {
	svc := &mockScreenService{err: service.ErrScreenNotFound}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/screens/missing", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "missing", svc.lastScreenID)
}

func TestScreenHandler_ViewForbidden(t *testing.T) {
	svc := &mockScreenService{err: service.ErrScreenForbidden}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/screens/screen-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestScreenHandler_SetCodePassesBody(t *testing.T) {
	svc := &mockScreenService{}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/v1/screens/screen-1/code", dto.CodeUpdateRequest{Code: "print('hi')"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "print('hi')", svc.lastCode)
}

func TestScreenHandler_SetLanguageUnsupported(t *testing.T) {
	svc := &mockScreenService{err: session.ErrUnsupportedLanguage}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/v1/screens/screen-1/language", dto.LanguageUpdateRequest{Language: "cobol"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestScreenHandler_SubmitConflictWhileInFlight(t *testing.T) {
	svc := &mockScreenService{err: session.ErrSubmissionInFlight}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens/screen-1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestScreenHandler_SubmitAfterCompletionConflicts(t *testing.T) {
	svc := &mockScreenService{err: session.ErrScreenCompleted}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens/screen-1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestScreenHandler_SubmitWhileDialogPendingConflicts(t *testing.T) {
	svc := &mockScreenService{err: session.ErrDialogPending}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens/screen-1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestScreenHandler_DismissWithoutDialogConflicts(t *testing.T) {
	svc := &mockScreenService{err: session.ErrNoDialog}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/v1/screens/screen-1/dialog", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestScreenHandler_FinishSuccess(t *testing.T) {
	svc := &mockScreenService{response: dto.ScreenResponse{
		ScreenID: "screen-1",
		View:     session.View{Completed: true, Route: "/test/complete"},
	}}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/screens/screen-1/finish", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, _, data := decodeScreenBody(t, resp)
	require.True(t, data.View.Completed)
	require.Equal(t, "/test/complete", data.View.Route)
}

func TestScreenHandler_ListSubmissions(t *testing.T) {
	svc := &mockScreenService{records: []dto.SubmissionRecordResponse{
		{ID: 1, QuestionID: "q-1", Language: "python", Outcome: "failure", Error: "2 tests failed"},
		{ID: 2, QuestionID: "q-1", Language: "python", Outcome: "advance"},
	}}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/screens/screen-1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                           `json:"success"`
		Data    []dto.SubmissionRecordResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "failure", body.Data[0].Outcome)
}

func TestScreenHandler_UnexpectedErrorIsInternal(t *testing.T) {
	svc := &mockScreenService{err: errors.New("boom")}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/screens/screen-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestScreenHandler_Unmount(t *testing.T) {
	svc := &mockScreenService{}
	app := newScreenApp(svc, 42)

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/v1/screens/screen-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "screen-1", svc.lastScreenID)
}
