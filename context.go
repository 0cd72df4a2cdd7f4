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

import "github.com/jdbcx-go/jdbcx/backend"

// QueryContext is the mutable per-build scratch state the expansion
// engine threads through one statement call: the config manager,
// connection suppliers, the active VariableTag, and per-call variables
// (spec.md §4.3 contract, §4.4 "create_context()"). Grounded on the
// teacher's param.go-carried per-call state, generalized from bound SQL
// parameters to expansion-time variables and connection suppliers.
type QueryContext struct {
	Manager   *ConnectionManager
	Tag       VariableTag
	Variables map[string]string

	// NewConnection opens a fresh backend connection enlisted as a
	// child of Manager, for extensions that need their own connection
	// (e.g. a cross-database federation extension).
	NewConnection func() (backend.Connection, error)

	// NewStatement wraps conn in a StatementWrapper bound to Manager.
	NewStatement func(conn backend.Connection) *StatementWrapper

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Track enlists a resource to be released when Close is called, in
// reverse-acquisition order (spec.md §5, "scoped acquisition").
func (c *QueryContext) Track(name string, close func() error) {
	c.closers = append(c.closers, namedCloser{name: name, close: close})
}

// Close releases every tracked resource best-effort, returning every
// error encountered rather than stopping at the first.
func (c *QueryContext) Close() []error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].close(); err != nil {
			errs = append(errs, &ResourceError{Err: err})
		}
	}
	c.closers = nil
	return errs
}
