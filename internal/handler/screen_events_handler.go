package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/codescreenhq/codescreen-api/internal/service"
)

// ScreenEventsHandler streams view snapshots of a mounted screen over a
// websocket, so the candidate tab and any proctor view stay in sync.
type ScreenEventsHandler struct {
	service service.ScreenService
	logger  zerolog.Logger
}

// NewScreenEventsHandler constructs the websocket handler.
func NewScreenEventsHandler(service service.ScreenService, logger zerolog.Logger) *ScreenEventsHandler {
	return &ScreenEventsHandler{
		service: service,
		logger:  logger.With().Str("component", "screen_events_handler").Logger(),
	}
}

// Register wires the websocket upgrade under the provided router group.
func (h *ScreenEventsHandler) Register(router fiber.Router) {
	router.Use("/:id/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/events", websocket.New(h.handleConnection))
}

func (h *ScreenEventsHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	screenID := conn.Params("id")
	candidateID := websocketCandidateID(conn)
	if candidateID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "candidate id missing"))
		return
	}

	views, cancel, err := h.service.Subscribe(screenID, candidateID)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, err.Error()))
		return
	}
	defer cancel()

	h.logger.Info().Str("screen_id", screenID).Msg("screen events websocket connected")

	// Reader goroutine: its only job is to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case view, ok := <-views:
			if !ok {
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				h.logger.Debug().Err(err).Str("screen_id", screenID).Msg("screen events write failed")
				return
			}
		case <-done:
			return
		}
	}
}
