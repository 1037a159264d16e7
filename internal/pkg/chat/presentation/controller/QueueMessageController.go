package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	queueport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/middleware"
	"marketchat/internal/pkg/chat/application/task"
)

// QueueMessageController enqueues a send as a background task instead of
// writing inline: the caller gets a 202 and the worker does the transaction.
type QueueMessageController struct {
	Q queueport.Client
}

func NewQueueMessageController(client queueport.Client) *QueueMessageController {
	return &QueueMessageController{Q: client}
}

// Handle returns a gin handler that enqueues a background task to send a message.
func (h *QueueMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Q == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is not configured"})
			return
		}

		chatID := c.Param("conversationId")
		if chatID == "" {
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
			senderID = id
		}
		if senderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sender_id is required"})
			return
		}

		// Queue retries replay the task, so every queued send carries a
		// dedupe key even when the caller did not provide one.
		dedupe := req.DedupeKey
		if dedupe == nil {
			k := ulid.Make().String()
			dedupe = &k
		}

		payload := task.SendMessageTaskPayload{
			ConversationID: chatID,
			SenderID:       senderID,
			ReceiverID:     req.ReceiverID,
			Body:           req.Body,
			DedupeKey:      dedupe,
		}
		b, err := json.Marshal(payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode task payload"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		opts := queueport.EnqueueOption{Queue: "chat", MaxRetry: 20}
		id, err := h.Q.Enqueue(ctx, queueport.Task{Type: task.SendMessageTaskType, Payload: b}, opts)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":          "queued",
			"task_id":         id,
			"conversation_id": chatID,
			"sender_id":       senderID,
			"dedupe_key":      *dedupe,
		})
	}
}
