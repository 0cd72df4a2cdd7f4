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

	"github.com/jdbcx-go/jdbcx/result"
)

// resultRows adapts a result.Result (an extension listener's output) to
// the backend.Rows shape CombinedResultSet expects, used for the
// direct-query fast path where the query's "result set" never actually
// round-trips through a backend.Statement at all (spec.md §4.3 step 2).
type resultRows struct {
	r    result.Result
	row  result.Row
	err  error
	done bool
}

func newResultRows(r result.Result) *resultRows {
	return &resultRows{r: r}
}

func (rr *resultRows) Columns() ([]string, error) {
	if rr.r == nil {
		return nil, nil
	}
	return rr.r.Columns(), nil
}

func (rr *resultRows) Next() bool {
	if rr.r == nil || rr.done {
		return false
	}
	row, ok, err := rr.r.Next()
	if err != nil {
		rr.err = err
		rr.done = true
		return false
	}
	if !ok {
		rr.done = true
		return false
	}
	rr.row = row
	return true
}

func (rr *resultRows) Scan(dest ...any) error {
	if rr.row == nil {
		return fmt.Errorf("jdbcx: Scan called before Next")
	}
	for i := 0; i < len(dest) && i < rr.row.Len(); i++ {
		v := rr.row.Value(i).AsString()
		switch d := dest[i].(type) {
		case *string:
			*d = v
		case *any:
			*d = v
		default:
			return fmt.Errorf("jdbcx: unsupported Scan destination %T", dest[i])
		}
	}
	return nil
}

func (rr *resultRows) Err() error { return rr.err }

func (rr *resultRows) Close() error { return nil }
