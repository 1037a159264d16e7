package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/pkg/chat/application/usecase"
	"marketchat/internal/pkg/chat/persistence/repository/adapter"
)

// GetMessageController serves a conversation's history (one controller per
// endpoint). Messages come back oldest first, relations expanded; the live
// websocket path appends from there.
type GetMessageController struct {
	UC *usecase.GetMessageUseCase
}

func NewGetMessageController(pool *pgxpool.Pool) *GetMessageController {
	repo := adapter.NewPgChatRepository(pool)
	return &GetMessageController{UC: usecase.NewGetMessageUseCase(repo)}
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		// Defaults
		limit := 50
		offset := 0

		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if v := c.Query("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.GetMessageInput{ConversationID: conversationID, Limit: limit, Offset: offset})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		out := make([]realtime.MessagePayload, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, realtime.ToPayload(m))
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": out,
			"limit":    limit,
			"offset":   offset,
			"count":    len(out),
		})
	}
}
