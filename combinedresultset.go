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
	"github.com/jdbcx-go/jdbcx/backend"
)

// CombinedResultSet unions the backend.Rows returned by every expanded
// query StatementWrapper.execute forwarded to the backend, in order, as
// one ordered cursor (spec.md §4.5, "combine all returned result-sets
// into a CombinedResultSet"). It also accumulates the generated keys and
// the update count across every non-row-producing query in the same
// statement call.
type CombinedResultSet struct {
	sets    []backend.Rows
	idx     int
	columns []string

	generatedKeys []int64
	// updateCount is the sum of RowsAffected across every Exec call in
	// the statement call; -1 once any call in the same statement call
	// produced a result-set instead of an update count (spec.md §4.5).
	updateCount int64
	// hasResultSet records that MarkResultSet was called, so later
	// AddUpdateCount calls leave updateCount at -1.
	hasResultSet bool
}

// NewCombinedResultSet builds a CombinedResultSet from sets, checked for
// schema compatibility (same column count) against the first non-empty
// set.
func NewCombinedResultSet(sets ...backend.Rows) (*CombinedResultSet, error) {
	c := &CombinedResultSet{sets: sets, updateCount: -1}
	for _, s := range sets {
		cols, err := s.Columns()
		if err != nil {
			return nil, &BackendError{Err: err}
		}
		if c.columns == nil {
			c.columns = cols
			continue
		}
		if len(cols) != len(c.columns) {
			return nil, ErrIncompatibleResultSets
		}
	}
	return c, nil
}

// AddGeneratedKey records a generated key surfaced by one Exec call.
func (c *CombinedResultSet) AddGeneratedKey(id int64) {
	c.generatedKeys = append(c.generatedKeys, id)
}

// GeneratedKeys returns every generated key recorded across the
// statement call, in call order.
func (c *CombinedResultSet) GeneratedKeys() []int64 { return c.generatedKeys }

// AddUpdateCount folds n into the running update count, per spec.md
// §4.5's "sum affected row counts; -1 once a query in the batch
// produced a result-set instead" rule.
func (c *CombinedResultSet) AddUpdateCount(n int64) {
	if c.hasResultSet {
		return
	}
	if c.updateCount < 0 {
		c.updateCount = n
		return
	}
	c.updateCount += n
}

// MarkResultSet flips the update count to -1, the sentinel meaning at
// least one query in this statement call returned a result-set rather
// than an update count.
func (c *CombinedResultSet) MarkResultSet() {
	c.hasResultSet = true
	c.updateCount = -1
}

// UpdateCount returns the combined update count, or -1 if any query in
// the statement call produced a result-set.
func (c *CombinedResultSet) UpdateCount() int64 { return c.updateCount }

// Columns returns the shared column schema.
func (c *CombinedResultSet) Columns() ([]string, error) { return c.columns, nil }

// Next advances to the next row across the concatenated sets, moving to
// the next set once the current one is exhausted.
func (c *CombinedResultSet) Next() bool {
	for c.idx < len(c.sets) {
		if c.sets[c.idx].Next() {
			return true
		}
		c.idx++
	}
	return false
}

// Scan delegates to the currently active set.
func (c *CombinedResultSet) Scan(dest ...any) error {
	if c.idx >= len(c.sets) {
		return ErrInvalidBlock
	}
	return c.sets[c.idx].Scan(dest...)
}

// Err reports the first error raised by any constituent set.
func (c *CombinedResultSet) Err() error {
	for _, s := range c.sets {
		if err := s.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every constituent set, returning the first error
// encountered but closing all of them regardless.
func (c *CombinedResultSet) Close() error {
	var first error
	for _, s := range c.sets {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
