package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/metrics"
	"marketchat/internal/pkg/chat/application/usecase"
	repoAdapter "marketchat/internal/pkg/chat/persistence/repository/adapter"
)

// SendMessageTaskType is the queue task name for sending a message.
const SendMessageTaskType = "chat:send_message"

// SendMessageTaskPayload is the JSON payload transported via the queue. Kept
// decoupled from domain types to avoid coupling JSON tags to the domain.
type SendMessageTaskPayload struct {
	ConversationID string  `json:"conversationId"`
	SenderID       string  `json:"senderId"`
	ReceiverID     string  `json:"receiverId"`
	Body           string  `json:"body"`
	DedupeKey      *string `json:"dedupeKey"`
}

// RegisterSendMessageTask binds the task handler to the provided server. The
// handler executes SendMessageUseCase against the pool and publishes the
// stored row through pub so sessions on API nodes still see queued sends.
// Enqueued tasks always carry a dedupe key, so queue retries stay idempotent.
func RegisterSendMessageTask(srv qport.Server, pool *pgxpool.Pool, pub usecase.MessagePublisher) {
	srv.Register(SendMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p SendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return err
		}

		uc := usecase.NewSendMessageUseCase(repoAdapter.NewPgChatRepository(pool), pub)

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.SendMessageInput{
			ConversationID: p.ConversationID,
			SenderID:       p.SenderID,
			ReceiverID:     p.ReceiverID,
			Body:           p.Body,
			DedupeKey:      p.DedupeKey,
		})
		if err != nil {
			// Retry/backoff policy is controlled by the queue server.
			return err
		}
		metrics.MessagesSent.WithLabelValues("queue").Inc()
		return nil
	})
}
