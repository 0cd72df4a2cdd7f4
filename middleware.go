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
	"time"

	"go.uber.org/zap"

	"github.com/jdbcx-go/jdbcx/backend"
)

// QueryHandler runs one already-expanded query text against the
// backend and returns a row cursor.
type QueryHandler func(ctx context.Context, query string) (backend.Rows, error)

// ExecHandler runs one already-expanded query text against the backend
// and returns its outcome.
type ExecHandler func(ctx context.Context, query string) (backend.Result, error)

// Middleware wraps a QueryHandler/ExecHandler around the next one in the
// chain, grounded on the teacher's middleware.go Middleware interface,
// generalized from a mapper Statement (xmlSQLStatement-backed) to a
// StatementWrapper, since this module has no XML-mapped statement
// concept.
type Middleware interface {
	QueryContext(stmt *StatementWrapper, next QueryHandler) QueryHandler
	ExecContext(stmt *StatementWrapper, next ExecHandler) ExecHandler
}

// ensure MiddlewareGroup implements Middleware.
var _ Middleware = MiddlewareGroup(nil)

// MiddlewareGroup folds a slice of Middleware into one: each member wraps
// the handler built from the members before it, so the last member is
// the outermost and runs first.
type MiddlewareGroup []Middleware

// QueryContext implements Middleware by folding every member's
// QueryContext around next.
func (g MiddlewareGroup) QueryContext(stmt *StatementWrapper, next QueryHandler) QueryHandler {
	if len(g) == 0 {
		return next
	}
	for _, m := range g {
		next = m.QueryContext(stmt, next)
	}
	return next
}

// ExecContext implements Middleware by folding every member's
// ExecContext around next.
func (g MiddlewareGroup) ExecContext(stmt *StatementWrapper, next ExecHandler) ExecHandler {
	if len(g) == 0 {
		return next
	}
	for _, m := range g {
		next = m.ExecContext(stmt, next)
	}
	return next
}

// ensure DebugMiddleware implements Middleware.
var _ Middleware = (*DebugMiddleware)(nil)

// DebugMiddleware logs the query text and its execution time, replacing
// the teacher's ANSI-colored log.Printf with structured zap fields
// (SPEC_FULL.md's ambient logging section).
type DebugMiddleware struct {
	Logger *zap.Logger
}

// QueryContext implements Middleware.
func (m *DebugMiddleware) QueryContext(stmt *StatementWrapper, next QueryHandler) QueryHandler {
	if m.Logger == nil {
		return next
	}
	return func(ctx context.Context, query string) (backend.Rows, error) {
		start := time.Now()
		rows, err := next(ctx, query)
		m.Logger.Debug("query", zap.String("sql", query), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return rows, err
	}
}

// ExecContext implements Middleware.
func (m *DebugMiddleware) ExecContext(stmt *StatementWrapper, next ExecHandler) ExecHandler {
	if m.Logger == nil {
		return next
	}
	return func(ctx context.Context, query string) (backend.Result, error) {
		start := time.Now()
		res, err := next(ctx, query)
		m.Logger.Debug("exec", zap.String("sql", query), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return res, err
	}
}

// ensure TimeoutMiddleware implements Middleware.
var _ Middleware = TimeoutMiddleware{}

// TimeoutMiddleware bounds each query/exec call with a fixed deadline,
// generalized from the teacher's per-statement "timeout" attribute to
// this middleware's own Timeout field since this module has no
// attribute-bearing mapped statement.
type TimeoutMiddleware struct {
	Timeout time.Duration
}

// QueryContext implements Middleware.
func (t TimeoutMiddleware) QueryContext(stmt *StatementWrapper, next QueryHandler) QueryHandler {
	if t.Timeout <= 0 {
		return next
	}
	return func(ctx context.Context, query string) (backend.Rows, error) {
		ctx, cancel := context.WithTimeout(ctx, t.Timeout)
		defer cancel()
		return next(ctx, query)
	}
}

// ExecContext implements Middleware.
func (t TimeoutMiddleware) ExecContext(stmt *StatementWrapper, next ExecHandler) ExecHandler {
	if t.Timeout <= 0 {
		return next
	}
	return func(ctx context.Context, query string) (backend.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, t.Timeout)
		defer cancel()
		return next(ctx, query)
	}
}
