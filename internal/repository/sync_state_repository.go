package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

// SyncStateRepository keeps sync coordinator state in Redis so it
// survives restarts and is shared across instances.
type SyncStateRepository struct {
	client *redis.Client
}

// NewSyncStateRepository constructs a SyncStateRepository.
func NewSyncStateRepository(client *redis.Client) *SyncStateRepository {
	return &SyncStateRepository{client: client}
}

func syncStateKey(direction string) string {
	return "sync:state:" + direction
}

// Get returns the recorded state for a direction, or ErrCacheMiss when
// the direction has never synced.
func (r *SyncStateRepository) Get(ctx context.Context, direction string) (*models.SyncState, error) {
	raw, err := r.client.Get(ctx, syncStateKey(direction)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get sync state %s: %w", direction, err)
	}

	var state models.SyncState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal sync state %s: %w", direction, err)
	}
	return &state, nil
}

// Set records the state for a direction.
func (r *SyncStateRepository) Set(ctx context.Context, direction string, state models.SyncState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal sync state %s: %w", direction, err)
	}
	if err := r.client.Set(ctx, syncStateKey(direction), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set sync state %s: %w", direction, err)
	}
	return nil
}

// Clear forgets both directions, forcing the next sync to run.
func (r *SyncStateRepository) Clear(ctx context.Context) error {
	keys := []string{syncStateKey("export"), syncStateKey("import")}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear sync state: %w", err)
	}
	return nil
}
