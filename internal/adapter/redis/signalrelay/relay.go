package signalrelay

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
	signalCounterPrefix = "signal:ctr:"
	signalKeyPrefix     = "signal:"
	signalChannelPrefix = "signals:"
	signalExpiration    = 10 * time.Minute
)

var _ secondary.SignalRelay = &SignalRelay{}

// SignalRelay implements the SignalRelay interface with Redis. Each source
// has a monotonically increasing counter; a published signal is stored under
// (source, seq) for polling receivers and pushed on the source's pub/sub
// channel for live ones. Stored signals expire so an abandoned source leaves
// nothing behind.
type SignalRelay struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewSignalRelay creates a new Redis signal relay
func NewSignalRelay(redisClient *redis.Client, logger primary.Logger) *SignalRelay {
	return &SignalRelay{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishSignal assigns the next sequence number for the source, stores the
// signal and pushes it to subscribers
func (r *SignalRelay) PublishSignal(ctx context.Context, signal *secondary.Signal) error {
	counterKey := fmt.Sprintf("%s%s", signalCounterPrefix, signal.Source)
	seq, err := r.redisClient.Incr(ctx, counterKey).Result()
	if err != nil {
		r.logger.Error("Failed to advance signal counter", "source", signal.Source, "error", err)
		return fmt.Errorf("failed to advance signal counter: %w", err)
	}
	signal.Seq = seq

	signalJSON, err := json.Marshal(signal)
	if err != nil {
		r.logger.Error("Failed to marshal signal", "error", err)
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	signalKey := fmt.Sprintf("%s%s:%d", signalKeyPrefix, signal.Source, seq)
	if err := r.redisClient.Set(ctx, signalKey, signalJSON, signalExpiration).Err(); err != nil {
		r.logger.Error("Failed to store signal", "source", signal.Source, "error", err)
		return fmt.Errorf("failed to store signal: %w", err)
	}

	channel := fmt.Sprintf("%s%s", signalChannelPrefix, signal.Source)
	if err := r.redisClient.Publish(ctx, channel, signalJSON).Err(); err != nil {
		r.logger.Error("Failed to publish signal", "source", signal.Source, "error", err)
		return fmt.Errorf("failed to publish signal: %w", err)
	}

	return nil
}

// ListSignals retrieves the signals a source emitted after afterSeq, oldest
// first
func (r *SignalRelay) ListSignals(ctx context.Context, source domain.WorkerID, afterSeq int64) ([]*secondary.Signal, error) {
	counterKey := fmt.Sprintf("%s%s", signalCounterPrefix, source)
	current, err := r.redisClient.Get(ctx, counterKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // source never emitted
		}
		r.logger.Error("Failed to read signal counter", "source", source, "error", err)
		return nil, fmt.Errorf("failed to read signal counter: %w", err)
	}
	if current <= afterSeq {
		return nil, nil
	}

	signalKeys := make([]string, 0, current-afterSeq)
	for seq := afterSeq + 1; seq <= current; seq++ {
		signalKeys = append(signalKeys, fmt.Sprintf("%s%s:%d", signalKeyPrefix, source, seq))
	}

	signalData, err := r.redisClient.MGet(ctx, signalKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve signals: %w", err)
	}

	signals := make([]*secondary.Signal, 0, len(signalData))
	for _, data := range signalData {
		if data == nil {
			continue // expired
		}
		var signal secondary.Signal
		if err := json.Unmarshal([]byte(data.(string)), &signal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
		}
		signals = append(signals, &signal)
	}

	return signals, nil
}
