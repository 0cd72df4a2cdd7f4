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
	"errors"
	"testing"

	"github.com/jdbcx-go/jdbcx/internal/sqlmock"
)

func singleRowStatement(values ...string) *sqlmock.MockStatement {
	cells := make([][]any, len(values))
	for i, v := range values {
		cells[i] = []any{v}
	}
	return &sqlmock.MockStatement{RowsToReturn: &sqlmock.MockRows{ColumnsLine: []string{"value"}, Data: cells}}
}

func TestStatementWrapperExecuteQueryStatic(t *testing.T) {
	conn := &sqlmock.MockConnection{Statement: singleRowStatement("x")}
	driver := &sqlmock.MockDriver{Conn: conn}
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return nil }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	rs, err := w.ExecuteQuery(context.Background(), "select 1")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	defer rs.Close()
	if !rs.Next() {
		t.Fatalf("expected one row")
	}
	var got string
	if err := rs.Scan(&got); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got != "x" {
		t.Fatalf("got %q want %q", got, "x")
	}
	if rs.Next() {
		t.Fatalf("expected exactly one row")
	}
}

func TestStatementWrapperExecuteQueryExpandsBlocks(t *testing.T) {
	descriptor := valuesDescriptor("a", "b")
	descriptor.SupportsDirectQuery = false
	conn := &sqlmock.MockConnection{PrepareFunc: func(query string) (*sqlmock.MockStatement, error) {
		return singleRowStatement("row"), nil
	}}
	driver := &sqlmock.MockDriver{Conn: conn}
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return []*ExtensionDescriptor{descriptor} }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	rs, err := w.ExecuteQuery(context.Background(), "select {{fixed: ignored}}")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	defer rs.Close()
	var count int
	for rs.Next() {
		count++
	}
	if count != 2 {
		t.Fatalf("expected one result set per expanded query (2), got %d", count)
	}
}

func TestStatementWrapperExecuteUpdate(t *testing.T) {
	stmt := &sqlmock.MockStatement{ResultToReturn: sqlmock.MockResult{Affected: 3}}
	conn := &sqlmock.MockConnection{Statement: stmt}
	driver := &sqlmock.MockDriver{Conn: conn}
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return nil }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	n, err := w.ExecuteUpdate(context.Background(), "delete from t")
	if err != nil {
		t.Fatalf("ExecuteUpdate: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d want 3", n)
	}
}

func TestStatementWrapperExecuteFallsBackToExec(t *testing.T) {
	// The first prepared statement (the Query attempt) fails; the second
	// (the Exec fallback) succeeds.
	prepares := 0
	conn := &sqlmock.MockConnection{PrepareFunc: func(query string) (*sqlmock.MockStatement, error) {
		prepares++
		if prepares == 1 {
			return &sqlmock.MockStatement{Err: errors.New("not a row-producing statement")}, nil
		}
		return &sqlmock.MockStatement{ResultToReturn: sqlmock.MockResult{Affected: 1, LastID: 7}}, nil
	}}
	driver := &sqlmock.MockDriver{Conn: conn}
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return nil }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	hasRows, rs, updateCount, err := w.Execute(context.Background(), "update t set x = 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if hasRows {
		t.Fatalf("expected no result set once Query fails and Exec succeeds")
	}
	if updateCount != 1 {
		t.Fatalf("got update count %d want 1", updateCount)
	}
	if rs != nil {
		t.Fatalf("expected a nil CombinedResultSet alongside an update count")
	}
}

func TestStatementWrapperExecuteDirectResult(t *testing.T) {
	conn := &sqlmock.MockConnection{}
	driver := &sqlmock.MockDriver{Conn: conn}
	descriptor := valuesDescriptor("only")
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return []*ExtensionDescriptor{descriptor} }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	hasRows, rs, updateCount, err := w.Execute(context.Background(), "{{fixed: whatever}}")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !hasRows {
		t.Fatalf("expected a direct result set")
	}
	if updateCount != 0 {
		t.Fatalf("expected no update count alongside a direct result, got %d", updateCount)
	}
	defer rs.Close()
	if !rs.Next() {
		t.Fatalf("expected one row")
	}
}

func TestStatementWrapperAddBatchExecuteBatch(t *testing.T) {
	stmt := &sqlmock.MockStatement{}
	conn := &sqlmock.MockConnection{Statement: stmt}
	driver := &sqlmock.MockDriver{Conn: conn}
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return nil }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	if err := w.AddBatch("insert into t values (1)"); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if err := w.AddBatch("insert into t values (2)"); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	n, err := w.ExecuteBatch(context.Background())
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d want 2", n)
	}
	if len(stmt.Batch) != 2 {
		t.Fatalf("expected two queued batch entries, got %d", len(stmt.Batch))
	}
}

func TestStatementWrapperCancelAndCloseReachActiveStatements(t *testing.T) {
	var stmts []*sqlmock.MockStatement
	conn := &sqlmock.MockConnection{PrepareFunc: func(query string) (*sqlmock.MockStatement, error) {
		s := singleRowStatement("row")
		stmts = append(stmts, s)
		return s, nil
	}}
	driver := &sqlmock.MockDriver{Conn: conn}
	descriptor := valuesDescriptor("a", "b")
	descriptor.SupportsDirectQuery = false
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return []*ExtensionDescriptor{descriptor} }, nil, nil)
	mgr := NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
	ctx := mgr.CreateContext()
	w := ctx.NewStatement(conn)

	rs, err := w.ExecuteQuery(context.Background(), "select {{fixed: ignored}}")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected two backend statements allocated, got %d", len(stmts))
	}

	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	for i, s := range stmts {
		if !s.Canceled {
			t.Fatalf("statement %d not canceled", i)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, s := range stmts {
		if !s.Closed {
			t.Fatalf("statement %d not closed", i)
		}
	}
	rs.Close()
}
