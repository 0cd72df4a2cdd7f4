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
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jdbcx-go/jdbcx/backend"
	"github.com/jdbcx-go/jdbcx/bridge"
	"github.com/jdbcx-go/jdbcx/dialect"
)

// sharedDialectCache is process-wide: the JdbcDialect cache is keyed by
// backend product string across every ConnectionManager in the process
// (spec.md Design Notes §9, "Global state"). Capacity 50 matches §4.4's
// "small bounded LRU (default 50 entries)".
var sharedDialectCache, _ = dialect.NewCache(50)

// ConnectionManager is the stable per-connection context used by the
// expansion engine and the statement wrappers (spec.md §4.4). Grounded
// on the teacher's juice.go Engine (owned driver/db/middleware,
// clone-on-environment-switch) and db.go's child-resource bookkeeping,
// generalized from "one *sql.DB per named environment" to "one primary
// BackendDriver connection plus a synchronized set of child
// connections opened during expansion."
type ConnectionManager struct {
	logger *zap.Logger

	driver backend.Driver
	conn   backend.Connection
	url    string

	registry         *ExtensionRegistry
	defaultExtension string
	tag              VariableTag

	mergedProps *Properties
	extProps    map[string]*Properties

	knownIDsMu sync.RWMutex
	knownIDs   map[string][]string

	metaOnce sync.Once
	meta     ConnectionMetaData
	metaErr  error

	bridgeOnce sync.Once
	bridgeCtx  bridge.Context

	childrenMu sync.Mutex
	children   []namedCloser

	closed atomic.Bool
}

// NewConnectionManager builds a manager owning conn, opened against
// url, using registry to resolve extensions and props as the merged
// property layer (explicit properties over CONFIG_PATH defaults). When
// props resolves a CONFIG_PATH option (spec.md §6), the named
// ".properties" file is loaded and layered beneath props so every
// explicit, per-call property still wins over a file default.
func NewConnectionManager(driver backend.Driver, conn backend.Connection, url string, registry *ExtensionRegistry, props *Properties, logger *zap.Logger) *ConnectionManager {
	if props == nil {
		props = NewProperties()
	}
	if path := OptConfigPath.Resolve(props); path != "" {
		if loaded, err := LoadPropertiesFile(path); err != nil {
			if logger != nil {
				logger.Warn("config file load failed", zap.String("path", path), zap.Error(err))
			}
		} else {
			props = props.WithParent(loaded)
		}
	}
	m := &ConnectionManager{
		driver:      driver,
		conn:        conn,
		url:         url,
		registry:    registry,
		mergedProps: props,
		tag:         TagByName(OptTag.Resolve(props)),
		logger:      logger,
		extProps:    make(map[string]*Properties),
		knownIDs:    make(map[string][]string),
	}
	if registry != nil {
		m.defaultExtension = registry.DefaultExtensionFromURL(url, "")
	}
	return m
}

// RegisterKnownIDs records the configuration IDs known for extension,
// consulted by the parser's id-pattern glob expansion via KnownIDs.
// spec.md leaves the discovery mechanism for "the config manager's
// known IDs" unspecified beyond their existence; this module exposes
// them as an explicit registration API rather than inferring them from
// property-key scanning, to avoid inventing an undocumented config
// layout.
func (m *ConnectionManager) RegisterKnownIDs(extension string, ids []string) {
	m.knownIDsMu.Lock()
	defer m.knownIDsMu.Unlock()
	m.knownIDs[strings.ToLower(extension)] = ids
}

// KnownIDs implements IDLister for the parser.
func (m *ConnectionManager) KnownIDs(extension string) []string {
	m.knownIDsMu.RLock()
	defer m.knownIDsMu.RUnlock()
	return m.knownIDs[strings.ToLower(extension)]
}

// Registry returns the manager's extension registry.
func (m *ConnectionManager) Registry() *ExtensionRegistry { return m.registry }

// Connection returns the manager's primary backend connection, the one
// an extension listener operates against unless it asks for a fresh one
// via QueryContext.NewConnection.
func (m *ConnectionManager) Connection() backend.Connection { return m.conn }

// DefaultExtension returns the extension a block with no name uses.
func (m *ConnectionManager) DefaultExtension() string { return m.defaultExtension }

// Tag returns the manager's active VariableTag.
func (m *ConnectionManager) Tag() VariableTag { return m.tag }

// Properties returns the manager's merged property layer.
func (m *ConnectionManager) Properties() *Properties { return m.mergedProps }

func (m *ConnectionManager) enlist(name string, close func() error) {
	m.childrenMu.Lock()
	m.children = append(m.children, namedCloser{name: name, close: close})
	m.childrenMu.Unlock()
}

// CreateConnection opens a new backend connection per the URL rules of
// spec.md §4.4: a plain "jdbc:*" URL is forwarded to the driver
// directly, a "jdbcx:*" URL is resolved through the registry again
// (extension-scoped properties, normalized URL). Any connection
// returned is enlisted as a child, closed when the manager closes.
func (m *ConnectionManager) CreateConnection(ctx context.Context) (backend.Connection, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	url := m.url
	props := m.mergedProps
	if strings.HasPrefix(url, "jdbcx:") {
		ext := m.defaultExtension
		if m.registry != nil {
			ext = m.registry.DefaultExtensionFromURL(url, m.defaultExtension)
		}
		url = NormalizeURL(url)
		props = m.ExtractProperties(ext)
	}
	conn, err := m.driver.Open(ctx, url, props.Flatten())
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	m.enlist("connection", conn.Close)
	return conn, nil
}

// CreateContext produces a fresh per-call QueryContext (spec.md §4.4).
func (m *ConnectionManager) CreateContext() *QueryContext {
	qctx := &QueryContext{
		Manager:   m,
		Tag:       m.tag,
		Variables: map[string]string{},
		NewConnection: func() (backend.Connection, error) {
			return m.CreateConnection(context.Background())
		},
	}
	qctx.NewStatement = func(conn backend.Connection) *StatementWrapper {
		return NewStatementWrapper(qctx, conn)
	}
	return qctx
}

// ExtractProperties returns a copy of the extension-specific property
// layer for ext, parented on the manager's merged properties (spec.md
// §4.4 "extract_properties(ext)").
func (m *ConnectionManager) ExtractProperties(ext string) *Properties {
	m.knownIDsMu.RLock()
	layer, ok := m.extProps[strings.ToLower(ext)]
	m.knownIDsMu.RUnlock()
	if !ok {
		return NewProperties(m.mergedProps)
	}
	return layer.Clone().WithParent(m.mergedProps)
}

// SetExtensionProperties installs the extension-scoped layer used by
// ExtractProperties and CreateConnection for ext.
func (m *ConnectionManager) SetExtensionProperties(ext string, props *Properties) {
	m.knownIDsMu.Lock()
	defer m.knownIDsMu.Unlock()
	m.extProps[strings.ToLower(ext)] = props
}

// GetMetadata lazily caches a ConnectionMetaData snapshot taken from the
// backend on first access; on driver failure it falls back to a
// snapshot bearing only the backend's Go type name as package (spec.md
// §4.4 "get_metadata()").
func (m *ConnectionManager) GetMetadata(ctx context.Context) (ConnectionMetaData, error) {
	m.metaOnce.Do(func() {
		raw, err := m.conn.Metadata(ctx)
		if err != nil {
			if m.logger != nil {
				m.logger.Debug("metadata lookup failed, falling back to package name", zap.Error(err))
			}
			m.meta = ConnectionMetaData{PackageName: fmt.Sprintf("%T", m.driver)}
			return
		}
		m.meta = ConnectionMetaData{
			PackageName:    raw.PackageName,
			ProductName:    raw.ProductName,
			ProductVersion: raw.ProductVersion,
			DriverName:     raw.DriverName,
			DriverVersion:  raw.DriverVersion,
			UserName:       raw.UserName,
			URL:            raw.URL,
		}
	})
	return m.meta, m.metaErr
}

// GetDialect resolves the JdbcDialect for this connection's backend
// product, cached process-wide by product string (spec.md §4.4
// "get_dialect()").
func (m *ConnectionManager) GetDialect(ctx context.Context) (dialect.Dialect, error) {
	meta, err := m.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	return sharedDialectCache.GetOrCreate(meta.Product(), dialect.Default), nil
}

// GetBridgeContext lazily fetches "<bridge_url>/config" and returns the
// augmented bridge.Context, caching the result for the manager's
// lifetime (spec.md §4.4 "get_bridge_context()").
func (m *ConnectionManager) GetBridgeContext(ctx context.Context) bridge.Context {
	m.bridgeOnce.Do(func() {
		url := OptServerURL.Resolve(m.mergedProps)
		if url == "" {
			host := OptServerHost.Resolve(m.mergedProps)
			port := OptServerPort.Resolve(m.mergedProps)
			path := OptServerContext.Resolve(m.mergedProps)
			url = fmt.Sprintf("http://%s:%s%s", host, port, path)
		}
		connectMS := StringValue(OptServerConnectTimeout.Resolve(m.mergedProps)).Int64()
		readMS := StringValue(OptServerSocketTimeout.Resolve(m.mergedProps)).Int64()

		// The /config body itself carries nothing the core consumes: the
		// bridge doesn't report its own product/user back, it only
		// confirms reachability (see DESIGN.md). A successful fetch earns
		// the full augmented context; a failed one falls back to a bare
		// context bearing only the URL, per spec.md §4.4.
		if _, err := bridge.Fetch(ctx, url, time.Duration(connectMS)*time.Millisecond, time.Duration(readMS)*time.Millisecond, m.logger); err != nil {
			if m.logger != nil {
				m.logger.Debug("bridge config fetch failed, using bare context", zap.Error(err))
			}
			m.bridgeCtx = bridge.Context{URL: url}
			return
		}

		meta, _ := m.GetMetadata(ctx)
		bc := bridge.Context{URL: url, Product: meta.Product(), User: meta.UserName}
		if StringValue(OptServerAuth.Resolve(m.mergedProps)).Bool() {
			bc.Token = OptServerToken.Resolve(m.mergedProps)
		}
		m.bridgeCtx = bc
	})
	return m.bridgeCtx
}

// Close closes every child resource best-effort, then the primary
// backend connection; idempotent (spec.md §4.4 "close()").
func (m *ConnectionManager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.childrenMu.Lock()
	children := m.children
	m.children = nil
	m.childrenMu.Unlock()

	for _, c := range children {
		if err := c.close(); err != nil {
			if m.logger != nil {
				m.logger.Warn("child resource close failed", zap.String("resource", c.name), zap.Error(err))
			}
		}
	}
	return m.conn.Close()
}

// With builds a new manager that shares this manager's driver, URL,
// registry and default extension, uses conn as its connection, and
// layers props over this manager's merged properties; id is not used.
// It serves hosts that keep several
// named environments alive at once (SPEC_FULL.md "Engine-level
// With(environmentID) clone-and-swap", grounded on juice.go's
// Engine.With/Engine.clone).
func (m *ConnectionManager) With(id string, conn backend.Connection, props *Properties) *ConnectionManager {
	merged := NewProperties(m.mergedProps)
	if props != nil {
		merged = props.WithParent(m.mergedProps)
	}
	clone := NewConnectionManager(m.driver, conn, m.url, m.registry, merged, m.logger)
	clone.defaultExtension = m.defaultExtension
	return clone
}
