package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/fitlink/chat-broker/internal/config"
	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/internal/hub"
	"github.com/fitlink/chat-broker/internal/service"
	"github.com/fitlink/chat-broker/pkg/log"
	"github.com/fitlink/chat-broker/pkg/response"
)

type WSHandler struct {
	service  service.ChatService
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

// NewWSHandler creates the handshake handler. An empty allowedOrigins accepts
// any Origin.
func NewWSHandler(svc service.ChatService, wsCfg config.WebSocketConfig, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		service: svc,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return lo.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// RegisterRoutes registers the chat socket routes and the health check.
func (h *WSHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws/chat/:room_id/", h.HandleWebSocket)
	r.GET("/wss/chat/:room_id/", h.HandleWebSocket)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// HandleWebSocket authenticates the bearer token from ?token=, resolves the
// room and upgrades. Rejected handshakes get a plain HTTP error and never
// join a room.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	sess := domain.NewSession(uuid.New().String())
	ctx := log.Enrich(c.Request.Context(), func(z zerolog.Context) zerolog.Context {
		return z.Str(log.FieldClientID, sess.ID)
	})
	l := log.Ctx(ctx)

	room, err := h.service.Connect(ctx, sess, c.Query("token"), c.Param("room_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingToken):
			response.Unauthorized(c, "missing token")
		case errors.Is(err, service.ErrUnauthorized):
			l.Warn().Err(err).Msg("handshake rejected")
			response.Unauthorized(c, "invalid token")
		case errors.Is(err, service.ErrRoomNotFound):
			response.NotFound(c, "room not found")
		default:
			l.Error().Err(err).Msg("handshake failed")
			response.InternalError(c, "failed to open chat connection")
		}
		return
	}

	user, _ := sess.Identity()
	c.Set(log.FieldUserID, uint64(user.ID))
	c.Set(log.FieldUsername, user.Username)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sess.Close()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The connection outlives the handshake request.
	connCtx := log.Enrich(context.WithoutCancel(ctx), func(z zerolog.Context) zerolog.Context {
		return z.Uint64(log.FieldUserID, uint64(user.ID)).Uint64(log.FieldRoomID, uint64(room.ID))
	})

	client := hub.NewClient(sess, conn, h.wsCfg)
	if err := h.service.Join(connCtx, client, room); err != nil {
		l.Error().Err(err).Msg("failed to join room")
		sess.Close()
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go func() {
		client.ReadPump(connCtx, func(ctx context.Context, data []byte) {
			h.handleFrame(ctx, client, data)
		})
		h.service.Disconnect(connCtx, client)
	}()
}

func (h *WSHandler) handleFrame(ctx context.Context, client *hub.Client, data []byte) {
	err := h.service.HandleFrame(ctx, client, data)
	if err == nil {
		return
	}

	l := log.Ctx(ctx)
	if de, ok := domain.AsDrop(err); ok {
		l.Warn().Str(log.FieldDropReason, string(de.Reason)).Str("detail", de.Detail).Msg("frame dropped")
		return
	}
	l.Error().Err(err).Msg("frame handling failed")
}
