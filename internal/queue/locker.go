package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"walkin/internal/shared/constants"
	"walkin/pkg/logger"
)

// OutletLocker serialises mutations of one outlet's queue
type OutletLocker interface {
	Lock(ctx context.Context, outletID uuid.UUID) (unlock func(), err error)
}

// ErrLockTimeout is returned when the lock could not be taken before ctx ended
var ErrLockTimeout = errors.New("timed out waiting for outlet lock")

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Slots are dropped once nobody holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[uuid.UUID]*lockSlot)}
}

func (l *LocalLocker) Lock(ctx context.Context, outletID uuid.UUID) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[outletID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[outletID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(outletID, slot)
		return nil, fmt.Errorf("outlet %s: %w", outletID, ErrLockTimeout)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(outletID, slot)
		})
	}, nil
}

func (l *LocalLocker) release(outletID uuid.UUID, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, outletID)
	}
}

// releaseScript deletes the lock only if it still carries our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker holds a per-outlet lease in Redis so several instances share one critical section
type RedisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	retry    time.Duration
	logger   *logger.Logger
	newToken func() string
}

func NewRedisLocker(client *redis.Client, ttl, retry time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		retry:    retry,
		logger:   log,
		newToken: uuid.NewString,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, outletID uuid.UUID) (func(), error) {
	key := constants.BuildQueueLockKey(outletID.String())
	token := l.newToken()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire outlet lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("outlet %s: %w", outletID, ErrLockTimeout)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
				l.logger.WarnContext(ctx, "failed to release outlet lock, lease will expire",
					"outlet_id", outletID.String(),
					"error", err.Error(),
				)
			}
		})
	}, nil
}

// ChainLocker takes every locker in order and releases in reverse
type ChainLocker []OutletLocker

func (c ChainLocker) Lock(ctx context.Context, outletID uuid.UUID) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, locker := range c {
		unlock, err := locker.Lock(ctx, outletID)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}
