package workerport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/ports/secondary"
	"gitlab.com/gridnode.net/internal/domain"
)

const (
	workerKeyPrefix  = "worker:"
	workerExpiration = 5 * time.Minute
)

var _ secondary.WorkerStateStore = &WorkerStateStore{}

// WorkerStateStore implements the WorkerStateStore interface with Redis.
// Entries expire on their own so a crashed node manager leaves no stale
// mirror behind.
type WorkerStateStore struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewWorkerStateStore creates a new Redis worker state store
func NewWorkerStateStore(redisClient *redis.Client, logger primary.Logger) *WorkerStateStore {
	return &WorkerStateStore{
		redisClient: redisClient,
		logger:      logger,
	}
}

// SaveWorkerState saves a worker snapshot to Redis
func (r *WorkerStateStore) SaveWorkerState(ctx context.Context, view *secondary.WorkerView) error {
	viewJSON, err := json.Marshal(view)
	if err != nil {
		r.logger.Error("Failed to marshal worker state", "error", err)
		return fmt.Errorf("failed to marshal worker state: %w", err)
	}

	workerKey := fmt.Sprintf("%s%s", workerKeyPrefix, view.ID)
	if err := r.redisClient.Set(ctx, workerKey, viewJSON, workerExpiration).Err(); err != nil {
		r.logger.Error("Failed to save worker state", "error", err)
		return fmt.Errorf("failed to save worker state: %w", err)
	}

	return nil
}

// GetWorkerState retrieves a worker snapshot from Redis by ID
func (r *WorkerStateStore) GetWorkerState(ctx context.Context, workerID domain.WorkerID) (*secondary.WorkerView, error) {
	workerKey := fmt.Sprintf("%s%s", workerKeyPrefix, workerID)
	viewJSON, err := r.redisClient.Get(ctx, workerKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to get worker state", "error", err)
		return nil, fmt.Errorf("failed to get worker state: %w", err)
	}

	var view secondary.WorkerView
	if err := json.Unmarshal(viewJSON, &view); err != nil {
		r.logger.Error("Failed to unmarshal worker state", "error", err)
		return nil, fmt.Errorf("failed to unmarshal worker state: %w", err)
	}

	return &view, nil
}

// GetAllWorkerStates retrieves every worker snapshot from Redis.
func (r *WorkerStateStore) GetAllWorkerStates(ctx context.Context) ([]*secondary.WorkerView, error) {
	var cursor uint64
	var workerKeys []string
	var views []*secondary.WorkerView
	var err error

	// Use SCAN to iterate over keys with the specified prefix
	for {
		var keys []string
		keys, cursor, err = r.redisClient.Scan(ctx, cursor, workerKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker keys: %w", err)
		}
		workerKeys = append(workerKeys, keys...)
		if cursor == 0 {
			break
		}
	}

	if len(workerKeys) == 0 {
		return views, nil // No workers found
	}

	// Use MGET to retrieve all worker data at once
	workerData, err := r.redisClient.MGet(ctx, workerKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve worker states: %w", err)
	}

	for _, data := range workerData {
		if data == nil {
			continue
		}
		var view secondary.WorkerView
		if err := json.Unmarshal([]byte(data.(string)), &view); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worker state: %w", err)
		}
		views = append(views, &view)
	}

	return views, nil
}

// RemoveWorkerState deletes a worker snapshot on death
func (r *WorkerStateStore) RemoveWorkerState(ctx context.Context, workerID domain.WorkerID) error {
	workerKey := fmt.Sprintf("%s%s", workerKeyPrefix, workerID)
	if err := r.redisClient.Del(ctx, workerKey).Err(); err != nil {
		r.logger.Error("Failed to remove worker state", "workerID", workerID, "error", err)
		return fmt.Errorf("failed to remove worker state: %w", err)
	}
	return nil
}
