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

package result

// Buffer is the eagerly-materialized Result variant: every row already
// held in memory. Grounded on the teacher's RowsBuffer (sql/buf.go),
// which eagerly scans a *sql.Rows into memory via database/sql's
// unexported convertAssign; this module never needs that generality
// since every cell it stores is already a string, so Buffer is a plain
// slice-backed cursor instead of a go:linkname'd scanner.
type Buffer struct {
	columns []string
	rows    []Row
	pos     int
}

// NewBuffer wraps an already-materialized row slice as a Result.
func NewBuffer(columns []string, rows []Row) *Buffer {
	return &Buffer{columns: columns, rows: rows}
}

// Empty returns a Buffer with the given column shape and no rows, used
// for metadata queries the core doesn't implement (spec.md Design Notes
// §9, "Metadata facade").
func Empty(columns ...string) *Buffer {
	return NewBuffer(columns, nil)
}

func (b *Buffer) Columns() []string { return b.columns }

func (b *Buffer) Next() (Row, bool, error) {
	if b.pos >= len(b.rows) {
		return nil, false, nil
	}
	row := b.rows[b.pos]
	b.pos++
	return row, true, nil
}

// Rows returns every row without disturbing the Next() cursor, for
// callers that need random access to the full row set rather than a
// single forward pass.
func (b *Buffer) Rows() []Row { return b.rows }

// Len reports the row count.
func (b *Buffer) Len() int { return len(b.rows) }

// Merge concatenates the rows of every non-nil result in order into one
// Buffer, used when a block with a multi-ID glob expansion invokes its
// extension once per ID and the per-ID Results must be unioned into a
// single Result (spec.md §4.3, step 2).
func Merge(results ...Result) (*Buffer, error) {
	var columns []string
	var rows []Row
	for _, r := range results {
		if r == nil {
			continue
		}
		if columns == nil {
			columns = r.Columns()
		}
		drained, err := Drain(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, drained...)
	}
	return NewBuffer(columns, rows), nil
}
