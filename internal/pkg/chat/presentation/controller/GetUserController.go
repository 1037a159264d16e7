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

// GetUserController resolves a participant profile by id.
type GetUserController struct {
	UC *usecase.ResolveParticipantUseCase
}

func NewGetUserController(pool *pgxpool.Pool, cache cacheport.Cache, log zerolog.Logger, profileTTL time.Duration) *GetUserController {
	users := adapter.NewPgUserRepository(pool)
	uc := usecase.NewResolveParticipantUseCase(users, cache, log)
	if profileTTL > 0 {
		uc.TTL = profileTTL
	}
	return &GetUserController{UC: uc}
}

func (h *GetUserController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		user, err := h.UC.Execute(ctx, userID)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":            user.ID,
			"name":          user.Name,
			"image_url":     user.ImageURL,
			"role":          user.Role,
			"conversations": user.Conversations,
		})
	}
}
