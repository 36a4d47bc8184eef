package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SyncLocker grants at most one sync per website at a time. TryLock never
// blocks; acquired is false when another sync holds the website.
type SyncLocker interface {
	TryLock(ctx context.Context, websiteID uuid.UUID) (release func(), acquired bool, err error)
}

// WebsiteSemaphore is an in-process SyncLocker
type WebsiteSemaphore struct {
	mu     sync.Mutex
	sems   map[uuid.UUID]chan struct{}
	active map[uuid.UUID]time.Time
}

// NewWebsiteSemaphore creates an in-process lock table
func NewWebsiteSemaphore() *WebsiteSemaphore {
	return &WebsiteSemaphore{
		sems:   make(map[uuid.UUID]chan struct{}),
		active: make(map[uuid.UUID]time.Time),
	}
}

func (ws *WebsiteSemaphore) getOrCreateSem(websiteID uuid.UUID) chan struct{} {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if sem, exists := ws.sems[websiteID]; exists {
		return sem
	}
	sem := make(chan struct{}, 1)
	ws.sems[websiteID] = sem
	return sem
}

// TryLock attempts to take the website slot without blocking
func (ws *WebsiteSemaphore) TryLock(_ context.Context, websiteID uuid.UUID) (func(), bool, error) {
	sem := ws.getOrCreateSem(websiteID)
	select {
	case sem <- struct{}{}:
	default:
		return nil, false, nil
	}

	ws.mu.Lock()
	ws.active[websiteID] = time.Now()
	ws.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			ws.mu.Lock()
			delete(ws.active, websiteID)
			ws.mu.Unlock()
			<-sem
		})
	}
	return release, true, nil
}

// IsLocked reports whether a sync currently holds the website
func (ws *WebsiteSemaphore) IsLocked(websiteID uuid.UUID) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_, ok := ws.active[websiteID]
	return ok
}

// GetStats returns the websites currently syncing and since when
func (ws *WebsiteSemaphore) GetStats() map[string]interface{} {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	active := make(map[string]string, len(ws.active))
	for id, since := range ws.active {
		active[id.String()] = since.UTC().Format(time.RFC3339)
	}
	return map[string]interface{}{
		"activeSyncs":   active,
		"totalWebsites": len(ws.sems),
	}
}

// Cleanup removes slots of websites with no active sync
func (ws *WebsiteSemaphore) Cleanup() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for id := range ws.sems {
		if _, busy := ws.active[id]; !busy {
			delete(ws.sems, id)
		}
	}
}

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisSyncLock is a SyncLocker shared by every replica. The TTL bounds how
// long a crashed holder can block a website.
type RedisSyncLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisSyncLock creates a distributed lock
func NewRedisSyncLock(client *redis.Client, ttl time.Duration, logger *logrus.Entry) *RedisSyncLock {
	return &RedisSyncLock{
		client: client,
		ttl:    ttl,
		logger: componentLogger(logger, "sync_lock"),
	}
}

func (l *RedisSyncLock) key(websiteID uuid.UUID) string {
	return fmt.Sprintf("profit:sync:lock:%s", websiteID)
}

// TryLock sets the lock key if absent
func (l *RedisSyncLock) TryLock(ctx context.Context, websiteID uuid.UUID) (func(), bool, error) {
	key := l.key(websiteID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() { l.release(key, token) }
	return release, true, nil
}

// release drops the key if it still carries token. A failed release leaves
// the website blocked until the TTL expires.
func (l *RedisSyncLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.WithError(err).WithField("lock_key", key).Warn("Failed to release sync lock")
	}
}

// ChainedLocker takes every lock in order and releases them in reverse
type ChainedLocker struct {
	lockers []SyncLocker
}

// NewChainedLocker combines lockers, e.g. an in-process and a redis lock
func NewChainedLocker(lockers ...SyncLocker) *ChainedLocker {
	return &ChainedLocker{lockers: lockers}
}

// TryLock acquires all lockers or none
func (c *ChainedLocker) TryLock(ctx context.Context, websiteID uuid.UUID) (func(), bool, error) {
	releases := make([]func(), 0, len(c.lockers))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, locker := range c.lockers {
		release, ok, err := locker.TryLock(ctx, websiteID)
		if err != nil || !ok {
			releaseAll()
			return nil, false, err
		}
		releases = append(releases, release)
	}
	return releaseAll, true, nil
}
