package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	cacheport "marketchat/internal/infrastructure/cache/port"
	"marketchat/internal/pkg/chat/application/usecase"
	"marketchat/internal/pkg/chat/persistence/repository/adapter"
)

// ListConversationsController serves the conversation directory: one
// deduplicated summary row per conversation the user participates in.
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(pool *pgxpool.Pool, cache cacheport.Cache, log zerolog.Logger, profileTTL time.Duration, fanout int) *ListConversationsController {
	repo := adapter.NewPgChatRepository(pool)
	users := adapter.NewPgUserRepository(pool)
	resolver := usecase.NewResolveParticipantUseCase(users, cache, log)
	if profileTTL > 0 {
		resolver.TTL = profileTTL
	}
	uc := usecase.NewListConversationsUseCase(repo, users, resolver, log)
	if fanout > 0 {
		uc.Fanout = fanout
	}
	return &ListConversationsController{UC: uc}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}

		// Directory fetches fan out per conversation; give them more room
		// than a single-row endpoint.
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := h.UC.Execute(ctx, usecase.ListConversationsInput{UserID: userID})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"conversations": result.Conversations,
			"count":         len(result.Conversations),
			"partial":       result.Partial,
		})
	}
}
