// Package permguard implements the locking decorator required by spec §5:
// every query and mutator on a shared Registry must be safe for concurrent
// use. Grounded on the teacher's Authorizer.mu sync.RWMutex in
// pkg/authorization/authorizer.go, which holds a read lock across queries
// and a write lock across cache refresh.
package permguard

import (
	"sync"

	"github.com/mmcdole/permtree/pkg/permgroup"
	"github.com/mmcdole/permtree/pkg/registry"
)

// Guarded wraps a *registry.Registry[ID] behind a sync.RWMutex: queries take
// the read lock, mutators and persistence take the write lock.
type Guarded[ID comparable] struct {
	mu  sync.RWMutex
	reg *registry.Registry[ID]
}

// New wraps reg for concurrent access.
func New[ID comparable](reg *registry.Registry[ID]) *Guarded[ID] {
	return &Guarded[ID]{reg: reg}
}

// Do runs fn holding the read lock. fn passes any result out through
// variables it captures. Use it for any query not already exposed as a
// method below.
func (g *Guarded[ID]) Do(fn func(r *registry.Registry[ID])) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(g.reg)
}

// Mutate runs fn holding the write lock. Use it for any mutator not already
// exposed as a method below.
func (g *Guarded[ID]) Mutate(fn func(r *registry.Registry[ID]) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.reg)
}

func (g *Guarded[ID]) UserHas(id ID, path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.UserHas(id, path)
}

func (g *Guarded[ID]) UserStatus(id ID, path string) registry.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.UserStatus(id, path)
}

func (g *Guarded[ID]) GroupHas(name, path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.GroupHas(name, path)
}

func (g *Guarded[ID]) DefaultHas(path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reg.DefaultHas(path)
}

func (g *Guarded[ID]) AssignUserPermission(id ID, permString string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.AssignUserPermission(id, permString)
}

func (g *Guarded[ID]) RevokeUserPermission(id ID, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.RevokeUserPermission(id, path)
}

func (g *Guarded[ID]) AssignGroupPermission(name, permString string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.AssignGroupPermission(name, permString)
}

func (g *Guarded[ID]) AssignGroupPriority(name string, p permgroup.Priority) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.AssignGroupPriority(name, p)
}

// Save holds the write lock across the full save so a concurrent mutator
// can never observe a torn write.
func (g *Guarded[ID]) Save() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Save()
}

// Load holds the write lock across the full load.
func (g *Guarded[ID]) Load() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reg.Load()
}

// Clear holds the write lock across the full reset.
func (g *Guarded[ID]) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reg.Clear()
}
