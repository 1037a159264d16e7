package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"marketchat/internal/infrastructure/cache/port"
	"marketchat/internal/metrics"
	chat "marketchat/internal/pkg/chat/domain"
	repository "marketchat/internal/pkg/chat/persistence/repository/port"
)

const defaultProfileTTL = 30 * time.Second

// ResolveParticipantUseCase looks up a participant profile by user id. A
// short-lived cache in front of the repository keeps the directory from
// re-fetching the same profile once per conversation row. An unknown id
// resolves to (nil, nil): not-found is a valid empty state, not an error.
type ResolveParticipantUseCase struct {
	Users repository.UserRepository
	Cache port.Cache // optional; nil disables caching
	TTL   time.Duration
	Log   zerolog.Logger
}

func NewResolveParticipantUseCase(users repository.UserRepository, cache port.Cache, log zerolog.Logger) *ResolveParticipantUseCase {
	return &ResolveParticipantUseCase{Users: users, Cache: cache, TTL: defaultProfileTTL, Log: log}
}

// Execute returns the profile for userID or nil when it resolves to nothing.
func (uc *ResolveParticipantUseCase) Execute(ctx context.Context, userID string) (*chat.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required")
	}

	key := "chat:user:" + userID
	if uc.Cache != nil {
		raw, err := uc.Cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
			var u chat.User
			if err := json.Unmarshal([]byte(raw), &u); err == nil {
				return &u, nil
			}
			// Unreadable entry: fall through to the repository.
		case !errors.Is(err, port.ErrMiss):
			// Cache trouble never fails the lookup.
			uc.Log.Warn().Err(err).Str("user_id", userID).Msg("profile cache read failed")
		}
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
	}

	u, err := uc.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if u == nil {
		return nil, nil
	}

	if uc.Cache != nil {
		if raw, err := json.Marshal(u); err == nil {
			ttl := uc.TTL
			if ttl <= 0 {
				ttl = defaultProfileTTL
			}
			if err := uc.Cache.Set(ctx, key, string(raw), ttl); err != nil {
				uc.Log.Warn().Err(err).Str("user_id", userID).Msg("profile cache write failed")
			}
		}
	}
	return u, nil
}
