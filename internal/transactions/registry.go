package transactions

import (
	"dotproduct/internal/cache"
)

// Registry keeps one Controller per browser session so paging works from
// memory across requests. Idle controllers expire.
type Registry struct {
	lister      Lister
	controllers *cache.LRUCache[*Controller]
}

func NewRegistry(lister Lister, controllers *cache.LRUCache[*Controller]) *Registry {
	return &Registry{lister: lister, controllers: controllers}
}

// For returns the controller bound to key, creating it on first use. An
// empty key yields a throwaway controller.
func (r *Registry) For(key string) *Controller {
	if key == "" {
		return NewController(r.lister)
	}
	return r.controllers.GetOrCreate(key, func() *Controller {
		return NewController(r.lister)
	})
}

// Forget drops the controller bound to key, e.g. on logout.
func (r *Registry) Forget(key string) {
	if key != "" {
		r.controllers.Delete(key)
	}
}

func (r *Registry) Size() int {
	return r.controllers.Size()
}
