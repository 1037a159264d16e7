package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/metrics"
	"marketchat/internal/middleware"
	"marketchat/internal/pkg/chat/application/usecase"
	chat "marketchat/internal/pkg/chat/domain"
	"marketchat/internal/pkg/chat/persistence/repository/adapter"
)

// SendMessageController handles the synchronous send endpoint (one controller
// per endpoint).
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewSendMessageController(pool *pgxpool.Pool, pub usecase.MessagePublisher) *SendMessageController {
	repo := adapter.NewPgChatRepository(pool)
	return &SendMessageController{UC: usecase.NewSendMessageUseCase(repo, pub)}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	SenderID   string  `json:"sender_id"`
	ReceiverID string  `json:"receiver_id" binding:"required"`
	Body       string  `json:"body" binding:"required"`
	DedupeKey  *string `json:"dedupe_key"`
}

// Handle returns a gin handler that persists a message into a conversation.
func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		senderID := req.SenderID
		if id := middleware.AuthedUserID(c); id != "" {
			// The token decides who is sending, not the body.
			senderID = id
		}
		if senderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sender_id is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: conversationID,
			SenderID:       senderID,
			ReceiverID:     req.ReceiverID,
			Body:           req.Body,
			DedupeKey:      req.DedupeKey,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMissingParticipant) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		metrics.MessagesSent.WithLabelValues("http").Inc()
		c.JSON(http.StatusCreated, gin.H{"message": realtime.ToPayload(*msg)})
	}
}
