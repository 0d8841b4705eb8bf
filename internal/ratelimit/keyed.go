package ratelimit

import (
	"sync"
	"time"
)

// Recorder receives limiter telemetry.
type Recorder interface {
	SetRateLimiterClients(n int)
}

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Burst         float64       // tokens per key
	RefillRate    float64       // tokens per second per key
	CleanupPeriod time.Duration // how often idle keys are forgotten
	Recorder      Recorder      // optional
}

// KeyedLimiter keeps one token bucket per key, typically a client IP. Keys
// whose bucket has refilled are dropped by a background sweep.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*Limiter
	cfg     KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
}

// NewKeyedLimiter creates the limiter and starts its cleanup loop. Call Stop
// to end it.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*Limiter),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow consumes a token from key's bucket. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return kl.get(key).Allow()
}

// RetryAfter returns how long key has to wait for its next token.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return 0
	}
	return l.RetryAfter()
}

func (kl *KeyedLimiter) get(key string) *Limiter {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if l, ok = kl.entries[key]; ok {
		return l
	}
	l = New(kl.cfg.Burst, kl.cfg.RefillRate)
	kl.entries[key] = l
	return l
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.sweep()
		}
	}
}

// sweep forgets keys whose bucket is full again.
func (kl *KeyedLimiter) sweep() {
	kl.mu.Lock()
	for key, l := range kl.entries {
		if l.IsFull() {
			delete(kl.entries, key)
		}
	}
	n := len(kl.entries)
	kl.mu.Unlock()

	if kl.cfg.Recorder != nil {
		kl.cfg.Recorder.SetRateLimiterClients(n)
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
