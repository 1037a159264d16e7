package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	cacheport "marketchat/internal/infrastructure/cache/port"
	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/pkg/chat/application/usecase"
	"marketchat/internal/pkg/chat/presentation/controller"
)

// Deps carries the shared infrastructure handed down to the chat endpoints.
type Deps struct {
	Pool      *pgxpool.Pool
	Cache     cacheport.Cache
	Queue     qport.Client // nil disables the queued-send endpoint
	Hub       *realtime.Hub
	Publisher usecase.MessagePublisher
	Log       zerolog.Logger

	ProfileTTL      time.Duration // zero keeps the resolver default
	DirectoryFanout int           // zero keeps the directory default
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly to
// routes.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	sendCtl := controller.NewSendMessageController(d.Pool, d.Publisher)
	queueCtl := controller.NewQueueMessageController(d.Queue)
	getMsgCtl := controller.NewGetMessageController(d.Pool)
	dirCtl := controller.NewListConversationsController(d.Pool, d.Cache, d.Log, d.ProfileTTL, d.DirectoryFanout)
	userCtl := controller.NewGetUserController(d.Pool, d.Cache, d.Log, d.ProfileTTL)
	socketCtl := controller.NewChatSocketController(d.Pool, d.Hub, d.Publisher)

	// Composer
	g.POST("/conversations/:conversationId/messages", sendCtl.Handle())
	g.POST("/conversations/:conversationId/messages/queue", queueCtl.Handle())

	// Message Feed history
	g.GET("/conversations/:conversationId/messages", getMsgCtl.Handle())

	// Conversation Directory
	g.GET("/users/:userId/conversations", dirCtl.Handle())

	// Participant Resolution
	g.GET("/users/:userId", userCtl.Handle())

	// Realtime session (Message Feed live path)
	g.GET("/chat/ws", socketCtl.Handle())
}
