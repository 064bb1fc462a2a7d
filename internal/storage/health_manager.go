package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Health is the last known state of a result store
type Health struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HealthManager keeps the health of every configured store in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]Health
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]Health),
	}
}

// UpdateHealth records the health of a store
func (hm *HealthManager) UpdateHealth(name string, h Health) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.health[name] = h
}

// GetHealth retrieves the health of a store
func (hm *HealthManager) GetHealth(name string) (Health, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	h, ok := hm.health[name]
	return h, ok
}

// GetAllHealth returns a copy of every recorded health status
func (hm *HealthManager) GetAllHealth() map[string]Health {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	result := make(map[string]Health, len(hm.health))
	for k, v := range hm.health {
		result[k] = v
	}
	return result
}

// IsHealthy reports whether a store was healthy at a check no older than maxAge
func (hm *HealthManager) IsHealthy(name string, maxAge time.Duration) bool {
	h, ok := hm.GetHealth(name)
	if !ok || time.Since(h.LastCheck) > maxAge {
		return false
	}
	return h.Status == "healthy"
}

// Check pings store and records the result under name
func (hm *HealthManager) Check(ctx context.Context, name string, store ResultStore) Health {
	h := Health{LastCheck: time.Now(), Status: "healthy", Message: name + " reachable"}
	if err := store.Ping(ctx); err != nil {
		h.Status = "unhealthy"
		h.Message = "ping failed"
		h.Error = err.Error()
	}
	hm.UpdateHealth(name, h)
	return h
}

// StartHealthMonitor checks every store in stores until ctx is cancelled
func (hm *HealthManager) StartHealthMonitor(ctx context.Context, wg *sync.WaitGroup, stores map[string]ResultStore, interval time.Duration, logger *zap.SugaredLogger) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		check := func() {
			for name, store := range stores {
				h := hm.Check(ctx, name, store)
				logger.Debugf("updated %s health status: %s", name, h.Status)
			}
		}
		check()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				check()
			case <-ctx.Done():
				logger.Info("stopping storage health monitor")
				return
			}
		}
	}()
}
