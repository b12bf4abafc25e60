package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftsync/internal/model"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL = 48 * time.Hour
	keyPrefix  = "liftsync||"
	keySuffix  = "||currentWorkout"
)

// Store keeps the in-progress workout of a user outside the synced state.
type Store interface {
	Save(ctx context.Context, userID string, workout model.WorkoutRecord) error
	// Load returns nil when there is no saved workout.
	Load(ctx context.Context, userID string) (*model.WorkoutRecord, error)
	Clear(ctx context.Context, userID string) error
}

var _ Store = (*RedisStore)(nil)

type RedisStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisStore uses DefaultTTL when ttl is not positive.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func currentWorkoutKey(userID string) string {
	return keyPrefix + userID + keySuffix
}

func (s *RedisStore) Save(ctx context.Context, userID string, workout model.WorkoutRecord) error {
	workoutBytes, err := json.Marshal(workout)
	if err != nil {
		return fmt.Errorf("marshal current workout: %w", err)
	}

	cmd := s.redisClient.Set(ctx, currentWorkoutKey(userID), workoutBytes, s.ttl)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("save current workout: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*model.WorkoutRecord, error) {
	cmd := s.redisClient.Get(ctx, currentWorkoutKey(userID))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load current workout: %w", err)
	}

	workout := &model.WorkoutRecord{}
	if err := json.Unmarshal([]byte(cmd.Val()), workout); err != nil {
		// a corrupt entry is dropped, never surfaced
		log.Errorf("session: unmarshal current workout of %s: %s", userID, err)
		return nil, s.Clear(ctx, userID)
	}
	return workout, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.redisClient.Del(ctx, currentWorkoutKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear current workout: %w", err)
	}
	return nil
}
