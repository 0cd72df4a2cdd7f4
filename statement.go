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
	"sync"

	"github.com/jdbcx-go/jdbcx/backend"
)

// StatementWrapper is the per-call façade spec.md §4.5 describes as
// sitting between a caller's single query text and the list of concrete
// backend queries the expansion engine produces from it. Grounded on the
// teacher's statement_handler.go StatementHandler hierarchy: the same
// "parse once, dispatch through a handler" shape, generalized from
// compiled/prepared/batch XML statements to expanded jdbcx templates,
// and on middleware.go's QueryHandler/ExecHandler wrapping.
//
// The backend.Statement trait this module infers binds one query text
// at Connection.Prepare time, so there is no backend-level notion of
// reusing one Statement handle across several distinct query texts. The
// wrapper does not consult the dialect's
// SupportsMultipleResultSetsPerStatement flag: every expanded query gets
// its own Statement, a Statement that produced rows stays open until
// Close, and a Statement used for Exec is closed as soon as that call
// returns (see DESIGN.md).
type StatementWrapper struct {
	ctx    *QueryContext
	conn   backend.Connection
	engine *ExpansionEngine

	// Middlewares wraps every Query/Exec call this wrapper makes.
	Middlewares MiddlewareGroup

	fetchDirection int
	fetchSize      int
	maxFieldSize   int
	queryTimeout   int
	largeMaxRows   int64
	haveAttrs      bool

	batch []string

	// activeMu guards active: statements currently in flight or holding
	// open rows, so a concurrent Cancel call (spec.md §5, "the wrapper
	// delegates cancel() to the backend statement") has something to
	// reach regardless of which goroutine is driving the call.
	activeMu sync.Mutex
	active   []backend.Statement
}

// NewStatementWrapper builds a StatementWrapper bound to ctx (for
// expansion-time Manager/Tag/Variables access) and conn (the backend
// connection queries run against).
func NewStatementWrapper(ctx *QueryContext, conn backend.Connection) *StatementWrapper {
	w := &StatementWrapper{ctx: ctx, conn: conn, engine: NewExpansionEngine(nil)}
	if ctx != nil && ctx.Manager != nil {
		w.engine = NewExpansionEngine(ctx.Manager.logger)
	}
	return w
}

// SetFetchDirection records the fetch direction applied to every
// freshly allocated per-query Statement.
func (w *StatementWrapper) SetFetchDirection(direction int) { w.fetchDirection = direction; w.haveAttrs = true }

// SetFetchSize records the fetch size applied to every freshly
// allocated per-query Statement.
func (w *StatementWrapper) SetFetchSize(n int) { w.fetchSize = n; w.haveAttrs = true }

// SetMaxFieldSize records the max field size applied to every freshly
// allocated per-query Statement.
func (w *StatementWrapper) SetMaxFieldSize(n int) { w.maxFieldSize = n; w.haveAttrs = true }

// SetQueryTimeout records the query timeout, in seconds, applied to
// every freshly allocated per-query Statement.
func (w *StatementWrapper) SetQueryTimeout(seconds int) { w.queryTimeout = seconds; w.haveAttrs = true }

// SetLargeMaxRows records the large-max-rows cap applied to every
// freshly allocated per-query Statement.
func (w *StatementWrapper) SetLargeMaxRows(n int64) { w.largeMaxRows = n; w.haveAttrs = true }

func (w *StatementWrapper) applyAttrs(stmt backend.Statement) {
	if !w.haveAttrs {
		return
	}
	stmt.SetFetchDirection(w.fetchDirection)
	stmt.SetFetchSize(w.fetchSize)
	stmt.SetMaxFieldSize(w.maxFieldSize)
	stmt.SetQueryTimeout(w.queryTimeout)
	stmt.SetLargeMaxRows(w.largeMaxRows)
}

func (w *StatementWrapper) parse(text string) (ParsedQuery, error) {
	qp := QueryParser{}
	if w.ctx != nil && w.ctx.Manager != nil {
		qp.Logger = w.ctx.Manager.logger
	}
	var ids IDLister
	if w.ctx != nil {
		ids = w.ctx.Manager
	}
	tag := BraceTag
	if w.ctx != nil {
		tag = w.ctx.Tag
	}
	return qp.Parse(text, tag, ids)
}

func (w *StatementWrapper) expand(text string) ([]string, *QueryResult, error) {
	pq, err := w.parse(text)
	if err != nil {
		return nil, nil, err
	}
	qr := &QueryResult{}
	queries, err := w.engine.Expand(w.ctx, pq, qr)
	if err != nil {
		return nil, nil, err
	}
	return queries, qr, nil
}

// allocate opens one backend.Statement for query, applying any recorded
// fetch/timeout attributes, and registers it as active so a concurrent
// Cancel call can reach it.
func (w *StatementWrapper) allocate(ctx context.Context, query string) (backend.Statement, error) {
	stmt, err := w.conn.Prepare(ctx, query)
	if err != nil {
		return nil, &BackendError{Queries: []string{query}, Err: err}
	}
	w.applyAttrs(stmt)
	w.activeMu.Lock()
	w.active = append(w.active, stmt)
	w.activeMu.Unlock()
	return stmt, nil
}

// release unregisters stmt from the active set and closes it.
func (w *StatementWrapper) release(stmt backend.Statement) error {
	w.activeMu.Lock()
	for i, s := range w.active {
		if s == stmt {
			w.active = append(w.active[:i], w.active[i+1:]...)
			break
		}
	}
	w.activeMu.Unlock()
	return stmt.Close()
}

// query wraps the Middlewares chain around a Query call for one already
// expanded query text. The backing statement stays registered as active
// (and open) after a successful call, since the returned Rows is still
// in use by the caller; Close releases it once the whole statement call
// is done.
func (w *StatementWrapper) query(ctx context.Context, text string) (backend.Rows, error) {
	handler := w.Middlewares.QueryContext(w, func(ctx context.Context, query string) (backend.Rows, error) {
		stmt, err := w.allocate(ctx, query)
		if err != nil {
			return nil, err
		}
		rows, err := stmt.Query(ctx)
		if err != nil {
			w.release(stmt)
			return nil, &BackendError{Queries: []string{query}, Err: err}
		}
		return rows, nil
	})
	return handler(ctx, text)
}

// exec wraps the Middlewares chain around an Exec call for one already
// expanded query text.
func (w *StatementWrapper) exec(ctx context.Context, text string) (backend.Result, error) {
	handler := w.Middlewares.ExecContext(w, func(ctx context.Context, query string) (backend.Result, error) {
		stmt, err := w.allocate(ctx, query)
		if err != nil {
			return nil, err
		}
		defer w.release(stmt)
		res, err := stmt.Exec(ctx)
		if err != nil {
			return nil, &BackendError{Queries: []string{query}, Err: err}
		}
		return res, nil
	})
	return handler(ctx, text)
}

// directResultSet adapts a QueryResult.DirectResult into the
// backend.Rows shape a CombinedResultSet expects, for the short-circuit
// path where expansion produced a result set without any backend query
// at all (spec.md §4.3 step 2, "direct-query fast path").
func (w *StatementWrapper) directResultSet(qr *QueryResult) (*CombinedResultSet, error) {
	rows := newResultRows(qr.DirectResult)
	return NewCombinedResultSet(rows)
}

// ExecuteQuery runs text and returns every produced row as a
// CombinedResultSet, per spec.md §4.5 "executeQuery(text)": every
// expanded query is run as a read, never falling back to Exec. The
// backing backend statements stay open until the caller calls w.Close,
// mirroring a JDBC Statement outliving the ResultSet it produced.
func (w *StatementWrapper) ExecuteQuery(ctx context.Context, text string) (*CombinedResultSet, error) {
	queries, qr, err := w.expand(text)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return w.directResultSet(qr)
	}
	sets := make([]backend.Rows, 0, len(queries))
	for _, q := range queries {
		rows, err := w.query(ctx, q)
		if err != nil {
			for _, s := range sets {
				s.Close()
			}
			w.Close()
			return nil, err
		}
		sets = append(sets, rows)
	}
	return NewCombinedResultSet(sets...)
}

// ExecuteUpdate runs text and returns the combined affected-row count,
// per spec.md §4.5 "executeUpdate(text)": every expanded query is run
// as a write, never producing rows.
func (w *StatementWrapper) ExecuteUpdate(ctx context.Context, text string) (int64, error) {
	queries, _, err := w.expand(text)
	if err != nil {
		return 0, err
	}
	if len(queries) == 0 {
		// Either a direct-result short circuit or a zero-row Cartesian
		// product (spec.md §8); both are a successful update of 0 rows.
		return 0, nil
	}
	var total int64
	for _, q := range queries {
		res, err := w.exec(ctx, q)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &BackendError{Queries: queries, Err: err}
		}
		total += n
	}
	return total, nil
}

// Execute runs text and reports whether the call produced a result set
// (per spec.md §4.5 "execute(text)", mirroring the JDBC Statement.execute
// contract where either outcome is possible). Since the backend.Statement
// trait this module infers splits reads and writes into separate Query/
// Exec calls rather than one polymorphic execute, each expanded query is
// first tried as a Query; a backend that rejects it as non-row-producing
// falls back to Exec (documented as a deliberate simplification in
// DESIGN.md).
func (w *StatementWrapper) Execute(ctx context.Context, text string) (hasResultSet bool, combined *CombinedResultSet, updateCount int64, err error) {
	queries, qr, err := w.expand(text)
	if err != nil {
		return false, nil, 0, err
	}
	if len(queries) == 0 {
		rs, err := w.directResultSet(qr)
		if err != nil {
			return false, nil, 0, err
		}
		return true, rs, 0, nil
	}

	combined = &CombinedResultSet{updateCount: -1}
	var sets []backend.Rows
	for _, q := range queries {
		rows, qErr := w.query(ctx, q)
		if qErr == nil {
			sets = append(sets, rows)
			combined.MarkResultSet()
			continue
		}
		res, eErr := w.exec(ctx, q)
		if eErr != nil {
			for _, s := range sets {
				s.Close()
			}
			w.Close()
			return false, nil, 0, eErr
		}
		if n, nErr := res.RowsAffected(); nErr == nil {
			combined.AddUpdateCount(n)
		}
		if id, idErr := res.LastInsertId(); idErr == nil {
			combined.AddGeneratedKey(id)
		}
	}
	if len(sets) == 0 {
		return false, nil, combined.UpdateCount(), nil
	}
	rs, err := NewCombinedResultSet(sets...)
	if err != nil {
		return false, nil, 0, err
	}
	rs.generatedKeys = combined.generatedKeys
	rs.updateCount = combined.updateCount
	return true, rs, 0, nil
}

// AddBatch collapses text to a single expanded query via handleString
// semantics (spec.md §4.5 "addBatch(text)"), queuing it for the
// backend's batched Exec rather than running it immediately.
func (w *StatementWrapper) AddBatch(text string) error {
	pq, err := w.parse(text)
	if err != nil {
		return err
	}
	qr := &QueryResult{}
	query, err := w.engine.HandleString(w.ctx, pq, qr)
	if err != nil {
		return err
	}
	w.batch = append(w.batch, query)
	return nil
}

// ExecuteBatch runs every query queued by AddBatch, in order, against
// one freshly allocated backend.Statement's batch machinery, returning
// the combined affected-row count.
func (w *StatementWrapper) ExecuteBatch(ctx context.Context) (int64, error) {
	if len(w.batch) == 0 {
		return 0, nil
	}
	queries := w.batch
	w.batch = nil
	stmt, err := w.conn.Prepare(ctx, "")
	if err != nil {
		return 0, &BackendError{Queries: queries, Err: err}
	}
	defer stmt.Close()
	w.applyAttrs(stmt)
	for _, q := range queries {
		stmt.AddBatch(q)
	}
	res, err := stmt.ExecBatch(ctx)
	if err != nil {
		return 0, &BackendError{Queries: queries, Err: err}
	}
	return res.RowsAffected()
}

// Cancel delegates to every backend statement currently in flight or
// holding open rows (spec.md §5, "the wrapper delegates cancel() to the
// backend statement"), meant to be called from a goroutine other than
// the one driving the Execute*/Query/Exec call it interrupts.
func (w *StatementWrapper) Cancel() error {
	w.activeMu.Lock()
	active := append([]backend.Statement(nil), w.active...)
	w.activeMu.Unlock()
	var first error
	for _, s := range active {
		if err := s.Cancel(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close releases every backend statement this wrapper still owns,
// including ones backing rows a caller's CombinedResultSet.Close call
// already drained (Statement.Close is idempotent on the backend side
// per the same convention ConnectionManager.Close relies on).
func (w *StatementWrapper) Close() error {
	w.activeMu.Lock()
	active := w.active
	w.active = nil
	w.activeMu.Unlock()
	var first error
	for _, s := range active {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
