package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "marketchat/internal/pkg/chat/domain"
)

// PgChatRepository implements the chat repository ports on a pgx pool.
type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const messageColumns = `
	m.id, m.conversation_id::text, m.sender_id::text, m.receiver_id::text,
	m.body, m.dedupe_key, m.created_at,
	s.name, s.image_url, s.role,
	r.name, r.image_url, r.role`

const messageJoins = `
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id`

// The conflict target must repeat the predicate of the partial unique index
// on (conversation_id, dedupe_key); Postgres cannot infer a partial index as
// the arbiter without it and rejects the statement at plan time.
const insertMessage = `
	INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, dedupe_key, created_at)
	VALUES ($1, $2::uuid, $3::uuid, $4::uuid, $5, $6, $7)
	ON CONFLICT (conversation_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
`

// SendMessage registers both participants and inserts the message in a single
// transaction. Registration is an upsert: ON CONFLICT DO NOTHING makes repeated
// sends a no-op on the membership side. When a dedupe key collides with an
// earlier message in the same conversation, the stored row wins and is returned.
func (repo *PgChatRepository) SendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if repo == nil || repo.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}

	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const register = `
		INSERT INTO participants (conversation_id, user_id, joined_at)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, register, m.ConversationID, m.SenderID, m.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, register, m.ConversationID, m.ReceiverID, m.CreatedAt); err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, insertMessage,
		m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.DedupeKey, m.CreatedAt)
	if err != nil {
		return nil, err
	}

	stored := m
	if ct.RowsAffected() == 0 && m.DedupeKey != nil {
		// Retried send: hand back the row the first attempt stored.
		row := tx.QueryRow(ctx, `
			SELECT `+messageColumns+messageJoins+`
			WHERE m.conversation_id = $1::uuid AND m.dedupe_key = $2
		`, m.ConversationID, *m.DedupeKey)
		prior, err := scanMessage(row)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return prior, nil
	}

	// Expand relations for the freshly inserted row.
	sender, receiver, err := loadPair(ctx, tx, m.SenderID, m.ReceiverID)
	if err != nil {
		return nil, err
	}
	stored.Sender = sender
	stored.Receiver = receiver

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (repo *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if repo == nil || repo.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := repo.pool.Query(ctx, `
		SELECT `+messageColumns+messageJoins+`
		WHERE m.conversation_id = $1::uuid
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (repo *PgChatRepository) LastMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	if repo == nil || repo.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	row := repo.pool.QueryRow(ctx, `
		SELECT `+messageColumns+messageJoins+`
		WHERE m.conversation_id = $1::uuid
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1
	`, conversationID)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (repo *PgChatRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	if repo == nil || repo.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := repo.pool.Query(ctx, `
		SELECT user_id::text
		FROM participants
		WHERE conversation_id = $1::uuid
		ORDER BY joined_at ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (repo *PgChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	if repo == nil || repo.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var ok bool
	err := repo.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM participants
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid
		)
	`, conversationID, userID).Scan(&ok)
	return ok, err
}

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var (
		msg    chat.Message
		sender chat.User
		recv   chat.User
	)
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Body, &msg.DedupeKey, &msg.CreatedAt,
		&sender.Name, &sender.ImageURL, &sender.Role,
		&recv.Name, &recv.ImageURL, &recv.Role,
	)
	if err != nil {
		return nil, err
	}
	sender.ID = msg.SenderID
	recv.ID = msg.ReceiverID
	msg.Sender = &sender
	msg.Receiver = &recv
	return &msg, nil
}

func loadPair(ctx context.Context, tx pgx.Tx, senderID, receiverID string) (*chat.User, *chat.User, error) {
	load := func(id string) (*chat.User, error) {
		var u chat.User
		err := tx.QueryRow(ctx, `
			SELECT id::text, name, image_url, role, created_at
			FROM users WHERE id = $1::uuid
		`, id).Scan(&u.ID, &u.Name, &u.ImageURL, &u.Role, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		return &u, nil
	}
	sender, err := load(senderID)
	if err != nil {
		return nil, nil, err
	}
	receiver, err := load(receiverID)
	if err != nil {
		return nil, nil, err
	}
	return sender, receiver, nil
}
