package storage

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/minus-twelve/budgetgate/types"
)

const memorySweepInterval = 5 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key. A bucket holds Limit tokens
// and refills one every Period/Limit.
type MemoryLimiter struct {
	buckets map[string]*bucket
	mutex   sync.Mutex
	every   rate.Limit
	burst   int
	idle    time.Duration

	shutdownChan chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

func NewMemoryLimiter(cfg types.Rate) *MemoryLimiter {
	limit, period := cfg.Limit, cfg.Period
	if limit <= 0 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}

	ml := &MemoryLimiter{
		buckets:      make(map[string]*bucket),
		every:        rate.Every(period / time.Duration(limit)),
		burst:        limit,
		idle:         period,
		shutdownChan: make(chan struct{}),
	}

	ml.wg.Add(1)
	go ml.sweep()

	return ml
}

func (ml *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	b, ok := ml.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(ml.every, ml.burst)}
		ml.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow(), nil
}

func (ml *MemoryLimiter) Reset(_ context.Context, key string) error {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()
	delete(ml.buckets, key)
	return nil
}

func (ml *MemoryLimiter) Close() error {
	ml.closeOnce.Do(func() {
		close(ml.shutdownChan)
	})
	ml.wg.Wait()
	return nil
}

func (ml *MemoryLimiter) Len() int {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()
	return len(ml.buckets)
}

func (ml *MemoryLimiter) sweep() {
	defer ml.wg.Done()

	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ml.removeIdle(time.Now())
		case <-ml.shutdownChan:
			return
		}
	}
}

// removeIdle drops buckets untouched for a full period; they are back at
// full capacity anyway.
func (ml *MemoryLimiter) removeIdle(now time.Time) {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	for key, b := range ml.buckets {
		if now.Sub(b.lastSeen) > ml.idle {
			delete(ml.buckets, key)
		}
	}
}
