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

package jdbcx

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ExtensionRegistry discovers, whitelists, and resolves extensions by
// name or alias, and picks a default extension from a connection URL.
// It builds lazily behind a sync.Once the way the teacher's db.go
// DBManager defers connecting until Get/Add is first called.
type ExtensionRegistry struct {
	Logger *zap.Logger

	discover  func() []*ExtensionDescriptor
	whitelist []string

	buildOnce sync.Once
	mu        sync.RWMutex
	byName    map[string]*ExtensionDescriptor
	aliasOf   map[string]string
}

// NewExtensionRegistry builds a registry that discovers extensions
// lazily via discover, restricted to whitelist when non-empty.
func NewExtensionRegistry(discover func() []*ExtensionDescriptor, whitelist []string, logger *zap.Logger) *ExtensionRegistry {
	return &ExtensionRegistry{discover: discover, whitelist: whitelist, Logger: logger}
}

func (r *ExtensionRegistry) ensureBuilt() {
	r.buildOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byName = make(map[string]*ExtensionDescriptor)
		r.aliasOf = make(map[string]string)

		allowed := make(map[string]bool, len(r.whitelist))
		for _, w := range r.whitelist {
			allowed[strings.ToLower(strings.TrimSpace(w))] = true
		}

		var descriptors []*ExtensionDescriptor
		if r.discover != nil {
			descriptors = r.discover()
		}
		for _, d := range descriptors {
			if d == nil || d.Name == "" {
				continue
			}
			name := strings.ToLower(d.Name)
			if len(allowed) > 0 && !allowed[name] {
				continue
			}
			r.byName[name] = d
			for _, alias := range d.Aliases {
				aliasKey := strings.ToLower(alias)
				if _, exists := r.aliasOf[aliasKey]; exists {
					if r.Logger != nil {
						r.Logger.Debug("extension alias conflict, keeping first registration",
							zap.String("alias", aliasKey), zap.String("extension", name))
					}
					continue
				}
				r.aliasOf[aliasKey] = name
			}
		}
	})
}

// Resolve looks up name by exact extension name, then by alias.
func (r *ExtensionRegistry) Resolve(name string) (*ExtensionDescriptor, bool) {
	r.ensureBuilt()
	key := strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byName[key]; ok {
		return d, true
	}
	if target, ok := r.aliasOf[key]; ok {
		if d, ok := r.byName[target]; ok {
			return d, true
		}
	}
	return nil, false
}

// Names returns every registered extension's canonical (lowercased)
// name, used by the metadata facade's GetCatalogs.
func (r *ExtensionRegistry) Names() []string {
	r.ensureBuilt()
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// DefaultExtensionFromURL extracts the extension name between "jdbcx:"
// and the following ':' in url; if present and resolvable, it becomes
// the default, else builtinDefault is returned (spec.md §4.2).
func (r *ExtensionRegistry) DefaultExtensionFromURL(url, builtinDefault string) string {
	const prefix = "jdbcx:"
	if !strings.HasPrefix(url, prefix) {
		return builtinDefault
	}
	rest := url[len(prefix):]
	name := rest
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		name = rest[:idx]
	}
	if dotIdx := strings.IndexByte(name, '.'); dotIdx >= 0 {
		name = name[:dotIdx]
	}
	if name == "" {
		return builtinDefault
	}
	if _, ok := r.Resolve(name); ok {
		return strings.ToLower(name)
	}
	return builtinDefault
}

// NormalizeURL rewrites a "jdbcx:[ext[.id]]:" prefix to "jdbc:",
// stripping the extension-name segment regardless of whether it
// resolves; a non-"jdbcx:" URL passes through unchanged (spec.md §4.2,
// §6, and the "URL normalization" law of §8).
func NormalizeURL(url string) string {
	const prefix = "jdbcx:"
	if !strings.HasPrefix(url, prefix) {
		return url
	}
	rest := url[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "jdbc:"
	}
	return "jdbc:" + rest[idx+1:]
}
