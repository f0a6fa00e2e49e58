package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/preplane/preplane-backend/internal/config"
	"github.com/preplane/preplane-backend/internal/middleware"
	"github.com/preplane/preplane-backend/internal/service"
	ws "github.com/preplane/preplane-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

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

// WSHandler streams live graded submissions to admin dashboards over
// WebSocket, backed by the per-test Redis pubsub channels the
// leaderboard worker publishes to.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ResultsStream godoc
// WS /ws/v1/admin/results?token=...
// Upgrades to WebSocket. The client sends watch/unwatch actions to
// follow one or more tests; each graded submission on a watched test is
// pushed as a result event the moment the worker publishes it.
func (h *WSHandler) ResultsStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("admin_id", claims.UserID).Logger()
	wsLog.Info().Msg("Admin connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx)
	defer pubsub.Close()

	// Writes come from both the reader loop (acks, errors) and the
	// pubsub forwarder; gorilla connections allow one writer at a time.
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	go h.forwardResults(ctx, pubsub, write, wsLog)

	for {
		var msg ws.WatchRequest
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionWatch:
			h.handleWatch(ctx, pubsub, write, &msg)
		case ws.ActionUnwatch:
			h.handleUnwatch(ctx, pubsub, write, &msg)
		case ws.ActionPing:
			_ = write(ws.PongResponse{Event: ws.EventPong})
		default:
			_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action"})
		}
	}
}

func (h *WSHandler) handleWatch(ctx context.Context, pubsub *redis.PubSub, write func(interface{}) error, msg *ws.WatchRequest) {
	testID, err := uuid.Parse(msg.TestID)
	if err != nil {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid test ID"})
		return
	}

	if err := pubsub.Subscribe(ctx, config.CacheKey.ResultsChannel(testID.String())); err != nil {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "subscribe failed"})
		return
	}
	_ = write(ws.WatchingResponse{Event: ws.EventWatching, TestID: testID.String()})
}

func (h *WSHandler) handleUnwatch(ctx context.Context, pubsub *redis.PubSub, write func(interface{}) error, msg *ws.WatchRequest) {
	testID, err := uuid.Parse(msg.TestID)
	if err != nil {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid test ID"})
		return
	}
	_ = pubsub.Unsubscribe(ctx, config.CacheKey.ResultsChannel(testID.String()))
}

// forwardResults relays pubsub messages to the client until the
// connection context is cancelled.
func (h *WSHandler) forwardResults(ctx context.Context, pubsub *redis.PubSub, write func(interface{}) error, log zerolog.Logger) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event service.LeaderboardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Msg("bad pubsub payload")
				continue
			}

			err := write(ws.ResultEvent{
				Event:            ws.EventResult,
				TestID:           event.TestID,
				UserID:           event.UserID,
				ResultID:         event.ResultID,
				Score:            event.Score,
				TimeTakenSeconds: event.TimeTakenSeconds,
			})
			if err != nil {
				log.Debug().Err(err).Msg("write failed, dropping stream")
				return
			}
		}
	}
}
