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

// Stream is the lazy Result variant: rows are pulled one at a time from
// a backend cursor via the pull function, mirroring the teacher's sql/rows.go Rows
// interface (itself shaped like *sql.Rows) instead of buffering
// everything up front. Use Stream when an extension's row count may be
// large or unknown ahead of time; use Buffer when the caller needs
// random access (the expansion engine's Cartesian pass does).
type Stream struct {
	columns []string
	pull    func() (Row, bool, error)
	closed  bool
}

// NewStream wraps pull as a Result. pull must return (nil, false, nil)
// once exhausted and is never called again afterward.
func NewStream(columns []string, pull func() (Row, bool, error)) *Stream {
	return &Stream{columns: columns, pull: pull}
}

func (s *Stream) Columns() []string { return s.columns }

func (s *Stream) Next() (Row, bool, error) {
	if s.closed {
		return nil, false, nil
	}
	row, ok, err := s.pull()
	if err != nil || !ok {
		s.closed = true
	}
	return row, ok, err
}
