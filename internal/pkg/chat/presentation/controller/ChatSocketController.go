package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/metrics"
	"marketchat/internal/middleware"
	"marketchat/internal/pkg/chat/application/usecase"
	chat "marketchat/internal/pkg/chat/domain"
	repoAdapter "marketchat/internal/pkg/chat/persistence/repository/adapter"
)

// ChatSocketController handles the websocket endpoint for realtime chat
// traffic. Sessions join per-conversation rooms; the hub only fans an inserted
// message to sessions joined to its conversation, so a session viewing Y never
// receives X's inserts.
type ChatSocketController struct {
	hub             *realtime.Hub
	sendMessageUC   *usecase.SendMessageUseCase
	joinRoomUC      *usecase.JoinConversationUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(pool *pgxpool.Pool, hub *realtime.Hub, pub usecase.MessagePublisher) *ChatSocketController {
	repo := repoAdapter.NewPgChatRepository(pool)
	return &ChatSocketController{
		hub:             hub,
		sendMessageUC:   usecase.NewSendMessageUseCase(repo, pub),
		joinRoomUC:      usecase.NewJoinConversationUseCase(repo),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Token auth happens before the upgrade; origin stays open for the
		// marketplace frontends.
		return true
	},
}

type inboundFrame struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversation_id,omitempty"`
	ReceiverID     string  `json:"receiver_id,omitempty"`
	Body           string  `json:"body,omitempty"`
	DedupeKey      *string `json:"dedupe_key,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the
// client disconnects. The deferred detach releases every room membership the
// session held, on every exit path.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.AuthedUserID(c)
		if userID == "" {
			userID = c.Query("user_id")
		}
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; nothing more to do.
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.hub.Attach(conn)
		defer func() {
			ctl.hub.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		handshakeAck := ackFrame{Type: "connected"}
		if payload, err := json.Marshal(handshakeAck); err == nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.replyError(conn, "read_error", err.Error())
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c, conn, frame)
			case "leave":
				ctl.handleLeave(conn, frame)
			case "message":
				ctl.handleMessage(c, conn, userID, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ctl.hub.Join(frame.ConversationID, conn)

	ack := ackFrame{Type: "joined", ConversationID: frame.ConversationID}
	if payload, err := json.Marshal(ack); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required")
		return
	}
	ctl.hub.Leave(frame.ConversationID, conn)

	ack := ackFrame{Type: "left", ConversationID: frame.ConversationID}
	if payload, err := json.Marshal(ack); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, userID string, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	result, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       userID,
		ReceiverID:     frame.ReceiverID,
		Body:           frame.Body,
		DedupeKey:      frame.DedupeKey,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}
	metrics.MessagesSent.WithLabelValues("ws").Inc()

	// The use case already fanned the message out to the conversation room.
	// Echo to the sender's session when it is not joined to the room, so the
	// sending device still renders its own message.
	event := realtime.NewMessageEvent(*result)
	if payload, err := json.Marshal(event); err == nil {
		if conn.MarkDelivered(result.ID) {
			_ = conn.Send(payload)
		}
	}
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		ctl.replyError(conn, "internal_error", "unexpected persistence error")
	case errors.Is(err, chat.ErrNotParticipant):
		ctl.replyError(conn, "forbidden", "user is not a participant in this conversation")
	default:
		ctl.replyError(conn, "bad_request", err.Error())
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	frame := errorFrame{
		Type:  "error",
		Code:  code,
		Error: message,
	}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
