package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codescreenhq/codescreen-api/internal/dto"
	"github.com/codescreenhq/codescreen-api/internal/service"
	"github.com/codescreenhq/codescreen-api/internal/session"
	"github.com/codescreenhq/codescreen-api/internal/utils"
)

// ScreenHandler exposes the test screen endpoints driving the session
// progression protocol.
type ScreenHandler struct {
	service   service.ScreenService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScreenHandler constructs the handler.
func NewScreenHandler(service service.ScreenService, validator *validator.Validate, logger zerolog.Logger) *ScreenHandler {
	return &ScreenHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "screen_handler").Logger(),
	}
}

// Register wires the screen endpoints into the router group.
func (h *ScreenHandler) Register(router fiber.Router) {
	router.Post("", h.mount)
	router.Get("/:id", h.view)
	router.Put("/:id/code", h.setCode)
	router.Put("/:id/language", h.setLanguage)
	router.Post("/:id/submissions", h.submit)
	router.Get("/:id/submissions", h.listSubmissions)
	router.Post("/:id/reattempt", h.chooseReattempt)
	router.Post("/:id/finish", h.chooseFinish)
	router.Delete("/:id/dialog", h.dismissError)
	router.Delete("/:id", h.unmount)
}

func (h *ScreenHandler) mount(c *fiber.Ctx) error {
	var payload dto.MountScreenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	candidateID := candidateIDFromContext(c)
	if candidateID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Mount(c.Context(), candidateID, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "screen mounted", response)
}

func (h *ScreenHandler) view(c *fiber.Ctx) error {
	response, err := h.service.View(c.Context(), c.Params("id"), candidateIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "screen state", response)
}

func (h *ScreenHandler) setCode(c *fiber.Ctx) error {
	var payload dto.CodeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.SetCode(c.Context(), c.Params("id"), candidateIDFromContext(c), payload.Code)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "code updated", response)
}

func (h *ScreenHandler) setLanguage(c *fiber.Ctx) error {
	var payload dto.LanguageUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	response, err := h.service.SetLanguage(c.Context(), c.Params("id"), candidateIDFromContext(c), payload.Language)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "language updated", response)
}

func (h *ScreenHandler) submit(c *fiber.Ctx) error {
	response, err := h.service.Submit(c.Context(), c.Params("id"), candidateIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submission processed", response)
}

func (h *ScreenHandler) listSubmissions(c *fiber.Ctx) error {
	records, err := h.service.ListSubmissions(c.Context(), c.Params("id"), candidateIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submission history", records)
}

func (h *ScreenHandler) chooseReattempt(c *fiber.Ctx) error {
	response, err := h.service.ChooseReattempt(c.Context(), c.Params("id"), candidateIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "reattempt requested", response)
}

func (h *ScreenHandler) chooseFinish(c *fiber.Ctx) error {
	response, err := h.service.ChooseFinish(c.Context(), c.Params("id"), candidateIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "test finished", response)
}

func (h *ScreenHandler) dismissError(c *fiber.Ctx) error {
	response, err := h.service.DismissError(c.Context(), c.Params("id"), candidateIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "dialog dismissed", response)
}

func (h *ScreenHandler) unmount(c *fiber.Ctx) error {
	if err := h.service.Unmount(c.Context(), c.Params("id"), candidateIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "screen unmounted", nil)
}

func (h *ScreenHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrScreenNotFound), errors.Is(err, service.ErrAttemptNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrScreenForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, session.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
	case errors.Is(err, session.ErrSubmissionInFlight):
		return utils.SendError(c, fiber.StatusConflict, "submission already in flight")
	case errors.Is(err, service.ErrAttemptCompleted),
		errors.Is(err, session.ErrScreenCompleted),
		errors.Is(err, session.ErrScreenClosed),
		errors.Is(err, session.ErrNoDialog),
		errors.Is(err, session.ErrDialogPending):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoQuestions):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validationErrors):
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			details = append(details, fmt.Sprintf("%s failed on the %s rule", fieldError.Field(), fieldError.Tag()))
		}
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	default:
		h.logger.Error().Err(err).Msg("screen operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
