package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "marketchat/internal/pkg/chat/domain"
)

// PgUserRepository resolves participant profiles from Postgres.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

// GetUser returns the profile with its conversation-id list expanded from the
// participants relation, or (nil, nil) when the id resolves to nothing.
func (repo *PgUserRepository) GetUser(ctx context.Context, id string) (*chat.User, error) {
	if repo == nil || repo.pool == nil {
		return nil, errors.New("PgUserRepository: nil pool")
	}

	var u chat.User
	err := repo.pool.QueryRow(ctx, `
		SELECT id::text, name, image_url, role, created_at
		FROM users WHERE id = $1::uuid
	`, id).Scan(&u.ID, &u.Name, &u.ImageURL, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := repo.pool.Query(ctx, `
		SELECT conversation_id::text
		FROM participants
		WHERE user_id = $1::uuid
		ORDER BY joined_at ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var convID string
		if err := rows.Scan(&convID); err != nil {
			return nil, err
		}
		u.Conversations = append(u.Conversations, convID)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return &u, nil
}
