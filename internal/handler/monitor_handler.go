package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/response"
	ws "github.com/stemsi/exstem-session/internal/websocket"
)

// EventSubscriber streams attempt events of one test until ctx ends.
type EventSubscriber interface {
	Subscribe(ctx context.Context, testID int64) (<-chan engine.Event, error)
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live attempt activity to proctors.
type MonitorHandler struct {
	tests    engine.TestCatalog
	events   EventSubscriber
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(tests engine.TestCatalog, events EventSubscriber, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		tests:    tests,
		events:   events,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// MonitorTest godoc
// WS /ws/v1/proctor/tests/:test_id/monitor
// Pushes attempt_started, answer_saved and attempt_finalized events for the
// test. Clients may send {"action":"ping"} and get a pong back.
func (h *MonitorHandler) MonitorTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if _, err := h.tests.TestByID(c.Request.Context(), testID); err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.events.Subscribe(ctx, testID)
	if err != nil {
		h.log.Error().Err(err).Int64("test_id", testID).Msg("Subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int64("proctor_id", claims.UserID).
		Int64("test_id", testID).
		Logger()
	wsLog.Info().Msg("Proctor connected")

	if err := ws.WriteTyped(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, TestID: testID}); err != nil {
		return
	}

	// Only this goroutine writes; the reader hands actions over.
	actions := make(chan ws.Action, 4)
	go func() {
		defer cancel()
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			select {
			case actions <- msg.Action:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var err error
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Proctor disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			err = ws.WriteTyped(conn, ws.AttemptResponse{Event: ws.EventAttempt, Data: ev})
		case action := <-actions:
			if action == ws.ActionPing {
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			} else {
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}
		}
		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			return
		}
	}
}
