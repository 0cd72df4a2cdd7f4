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
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// PropertyPrefix is the namespace every core option lives under.
const PropertyPrefix = "jdbcx."

// Properties is an ordered name->string mapping with a chain of parents
// tried in order when a key is absent from this layer. A key present
// with the empty string behaves as "absent" when the key is
// PropertyPrefix-scoped and this layer is shadowing a parent's default
// (see StringValue / Option.Resolve) - the FIXME-flagged behavior from
// the Java source, kept as documented.
type Properties struct {
	values  map[string]string
	parents []*Properties
}

// NewProperties creates an empty Properties layer with the given parents,
// tried in order when a key is missing locally.
func NewProperties(parents ...*Properties) *Properties {
	return &Properties{parents: parents}
}

// Set assigns name to value in this layer only.
func (p *Properties) Set(name, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[name] = value
}

// SetAll copies every entry of m into this layer.
func (p *Properties) SetAll(m map[string]string) {
	for k, v := range m {
		p.Set(k, v)
	}
}

// Lookup returns the value for name in this layer or any parent, tried
// in order, along with whether it was found at all (even as an empty
// string).
func (p *Properties) Lookup(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	if v, ok := p.values[name]; ok {
		return v, true
	}
	for _, parent := range p.parents {
		if v, ok := parent.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Get returns the value for name, or "" if absent. An empty string set
// under a PropertyPrefix-scoped key is treated as absent so that a
// parent's non-empty default (or a further parent) can still surface.
func (p *Properties) Get(name string) string {
	v, ok := p.Lookup(name)
	if !ok {
		return ""
	}
	if v == "" && len(name) >= len(PropertyPrefix) && name[:len(PropertyPrefix)] == PropertyPrefix {
		for _, parent := range p.parents {
			if pv, pok := parent.Lookup(name); pok && pv != "" {
				return pv
			}
		}
		return ""
	}
	return v
}

// Clone returns a shallow copy of this layer's own values with the same
// parent chain - used by ConnectionManager.ExtractProperties to hand out
// an independent layer a caller may mutate without affecting the
// manager's merged properties.
func (p *Properties) Clone() *Properties {
	clone := &Properties{parents: p.parents}
	if len(p.values) > 0 {
		clone.values = make(map[string]string, len(p.values))
		for k, v := range p.values {
			clone.values[k] = v
		}
	}
	return clone
}

// Flatten collapses the parent chain into a single map, parents applied
// first so this layer's own values win, used when handing properties to
// a backend.Driver.Open call that only understands a flat map.
func (p *Properties) Flatten() map[string]string {
	out := make(map[string]string)
	if p == nil {
		return out
	}
	for i := len(p.parents) - 1; i >= 0; i-- {
		for k, v := range p.parents[i].Flatten() {
			out[k] = v
		}
	}
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// WithParent returns a new Properties layered on top of the given
// parent, leaving both untouched - used to build the "extension-scoped
// over merged" chain ConnectionManager.ExtractProperties returns.
func (p *Properties) WithParent(parent *Properties) *Properties {
	return &Properties{values: p.values, parents: append(append([]*Properties{}, p.parents...), parent)}
}

// LoadPropertiesFile reads a flat key=value ".properties" file (the
// CONFIG_PATH option) using ini.v1, which tolerates the same '#'/';'
// comment leaders as the Java format. Keys under a named [section] are
// stored as "section.key".
func LoadPropertiesFile(path string) (*Properties, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot read config file %q", path), Err: err}
	}
	props := NewProperties()
	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			name := key.Name()
			if section.Name() != ini.DefaultSection {
				name = section.Name() + "." + name
			}
			props.Set(name, key.Value())
		}
	}
	return props, nil
}

// Option is an immutable description of a single configurable value:
// its name, default, documentation, allowed choices, and the
// environment-variable / system-property suffixes used as fallbacks
// when no explicit value is supplied.
type Option struct {
	Name            string
	Default         string
	Description     string
	Choices         []string
	EnvVarSuffix    string
	SystemPropSuffix string
}

// systemProperties models the Java "system property" fallback tier as a
// process-wide Properties layer; Go has no direct analogue to
// System.getProperty, so this layer is populated explicitly by a host
// (e.g. from -D-style flags) and otherwise stays empty.
var systemProperties = NewProperties()

// SetSystemProperty populates the system-property fallback tier used by
// Option.Resolve. Hosts that parse -D-style flags should call this
// during startup.
func SetSystemProperty(name, value string) {
	systemProperties.Set(name, value)
}

// Resolve computes the Option's effective value against the supplied
// Properties, following the order: explicit value in props > value
// under the PropertyPrefix-scoped key > system property > environment
// variable > default.
func (o Option) Resolve(props *Properties) string {
	if props != nil {
		if v, ok := props.Lookup(o.Name); ok && v != "" {
			return v
		}
	}
	prefixed := PropertyPrefix + o.Name
	if props != nil {
		if v := props.Get(prefixed); v != "" {
			return v
		}
	}
	if o.SystemPropSuffix != "" {
		if v, ok := systemProperties.Lookup(o.SystemPropSuffix); ok && v != "" {
			return v
		}
	}
	if o.EnvVarSuffix != "" {
		if v := os.Getenv(o.EnvVarSuffix); v != "" {
			return v
		}
	}
	return o.Default
}

// ExtensionOptionName returns the extension-scoped property name for
// option o under extension name ext: PropertyPrefix + ext + "." + o.Name.
func (o Option) ExtensionOptionName(ext string) string {
	return PropertyPrefix + ext + "." + o.Name
}

// StringValue is a thin wrapper over a resolved option value exposing
// typed conversions, matching the teacher's settings-conversion
// conventions (invalid input yields the type's zero value rather than
// an error, since options are meant to be forgiving of hand-edited
// config).
type StringValue string

// Bool reports whether the value is the literal string "true".
func (s StringValue) Bool() bool { return string(s) == "true" }

// String returns the underlying string.
func (s StringValue) String() string { return string(s) }

// Int64 parses the value as a base-10 int64, returning 0 on failure.
func (s StringValue) Int64() int64 {
	var v int64
	_, err := fmt.Sscanf(string(s), "%d", &v)
	if err != nil {
		return 0
	}
	return v
}

// Recognized core options (spec.md §6).
var (
	OptConfigPath = Option{Name: "configPath", Description: "Path to a .properties file loaded as defaults before per-call properties.", EnvVarSuffix: "JDBCX_CONFIG_PATH"}
	OptCustomClasspath = Option{Name: "customClasspath", Description: "Extra class search path used by the extension loader."}
	OptExtensionWhitelist = Option{Name: "extensionWhitelist", Description: "Comma-separated names; empty means allow all."}
	OptServerURL = Option{Name: "server.url", Description: "Bridge server base URL."}
	OptServerHost = Option{Name: "server.host", Default: "127.0.0.1", Description: "Bridge server host, used when server.url is absent."}
	OptServerPort = Option{Name: "server.port", Default: "8080", Description: "Bridge server port, used when server.url is absent."}
	OptServerContext = Option{Name: "server.context", Description: "Bridge server URL path prefix."}
	OptServerToken = Option{Name: "server.token", EnvVarSuffix: "JDBCX_SERVER_TOKEN", Description: "Bridge authentication bearer token."}
	OptServerAuth = Option{Name: "server.auth", Default: "false", Description: "Whether bridge authentication is enabled."}
	OptServerConnectTimeout = Option{Name: "server.connect.timeout", Default: "5000", Description: "Bridge HTTP connect timeout, milliseconds."}
	OptServerSocketTimeout = Option{Name: "server.socket.timeout", Default: "30000", Description: "Bridge HTTP read timeout, milliseconds."}
	OptTag = Option{Name: "tag", Default: "BRACE", Choices: []string{"BRACE", "SQUARE"}, Description: "Selects the VariableTag dialect."}
	OptExecDryrun = Option{Name: "exec.dryrun", Default: "false", Description: "Return the block's Result as the query's result set without running downstream SQL."}
	OptResultStringReplace = Option{Name: "result.string.replace", Default: "false", Description: "Re-run variable substitution over each expanded cell."}
	OptResultStringTrim = Option{Name: "result.string.trim", Default: "false", Description: "Trim each expanded cell."}
	OptResultStringEscape = Option{Name: "result.string.escape", Default: "false", Description: "Escape a target character in each expanded cell."}
	OptResultStringEscapeTarget = Option{Name: "result.string.escape.target", Default: "'", Description: "Character to escape when result.string.escape is set."}
	OptResultStringEscapeChar = Option{Name: "result.string.escape.char", Default: "\\", Description: "Escape character used when result.string.escape is set."}
	OptID = Option{Name: "id", Description: "Selects a named configuration for an extension instance."}
)
