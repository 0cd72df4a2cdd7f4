/*
Copyright 2023 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dialect

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a bounded, concurrency-safe product-string -> Dialect cache,
// process-wide per spec.md Design Notes §9 ("a bounded concurrent map
// or a per-process lazy singleton"). GetOrCreate serializes creation
// under a single mutex rather than racing multiple constructions and
// discarding the losers - a coarse lock is fine at this bound (default
// 50 entries, created at most once per distinct backend product).
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, Dialect]
}

// NewCache builds a Cache bounded at capacity entries.
func NewCache(capacity int) (*Cache, error) {
	inner, err := lru.New[string, Dialect](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// GetOrCreate returns the cached Dialect for product, calling create
// and publishing its result only if no entry exists yet.
func (c *Cache) GetOrCreate(product string, create func() Dialect) Dialect {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.inner.Get(product); ok {
		return d
	}
	d := create()
	c.inner.Add(product, d)
	return d
}
