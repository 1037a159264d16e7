package v1

import (
	"github.com/gin-gonic/gin"

	"marketchat/internal/auth"
	"marketchat/internal/middleware"
	httpHandler "marketchat/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1. When an
// authenticator is provided every route requires a bearer token.
func RegisterRoutes(r *gin.Engine, a *auth.Authenticator, deps httpHandler.Deps) {
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(a))
	httpHandler.RegisterRoutes(v1, deps)
}
