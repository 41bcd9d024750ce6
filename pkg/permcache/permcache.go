// Package permcache implements the TTL reload-on-stale decorator of spec
// §5, grounded directly on Authorizer.refreshCache/ensureFreshCache in
// pkg/authorization/authorizer.go (cacheDuration, lastRefresh, a
// read-mostly mutex guarding a reload triggered by staleness rather than by
// a filesystem watch).
package permcache

import (
	"sync"
	"time"

	"github.com/mmcdole/permtree/pkg/registry"
)

// Cached wraps a *registry.Registry[ID], reloading it from its backing
// files whenever a query arrives and more than Duration has passed since
// the last successful reload.
type Cached[ID comparable] struct {
	reg      *registry.Registry[ID]
	duration time.Duration

	mu          sync.RWMutex
	lastRefresh time.Time
}

// New wraps reg with a cacheDuration window. An initial load is performed
// immediately, matching NewAuthorizer's "initial load" step.
func New[ID comparable](reg *registry.Registry[ID], duration time.Duration) (*Cached[ID], error) {
	c := &Cached[ID]{reg: reg, duration: duration}
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cached[ID]) refresh() error {
	if err := c.reg.Load(); err != nil {
		return err
	}
	c.mu.Lock()
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Cached[ID]) ensureFresh() error {
	c.mu.RLock()
	stale := time.Since(c.lastRefresh) >= c.duration
	c.mu.RUnlock()
	if stale {
		return c.refresh()
	}
	return nil
}

// Registry returns the wrapped registry after ensuring it is fresh enough,
// for callers that want direct access to the full query surface.
func (c *Cached[ID]) Registry() (*registry.Registry[ID], error) {
	if err := c.ensureFresh(); err != nil {
		return nil, err
	}
	return c.reg, nil
}

// UserHas ensures freshness before consulting the registry; on a reload
// error it reports no permission, mirroring the teacher's
// "cache refresh failed -> deny" fallback in Authorizer.HasPermission.
func (c *Cached[ID]) UserHas(id ID, path string) bool {
	if err := c.ensureFresh(); err != nil {
		return false
	}
	return c.reg.UserHas(id, path)
}

func (c *Cached[ID]) GroupHas(name, path string) bool {
	if err := c.ensureFresh(); err != nil {
		return false
	}
	return c.reg.GroupHas(name, path)
}

func (c *Cached[ID]) DefaultHas(path string) bool {
	if err := c.ensureFresh(); err != nil {
		return false
	}
	return c.reg.DefaultHas(path)
}

// Invalidate forces the next query to reload regardless of the TTL.
func (c *Cached[ID]) Invalidate() {
	c.mu.Lock()
	c.lastRefresh = time.Time{}
	c.mu.Unlock()
}
