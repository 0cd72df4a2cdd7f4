/*
Copyright 2025 eatmoreapple

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

package sqlmock

import (
	"context"
	"errors"

	"github.com/jdbcx-go/jdbcx/backend"
)

// MockResult is a canned backend.Result.
type MockResult struct {
	LastID       int64
	Affected     int64
	LastIDErr    error
	AffectedErr  error
}

func (r MockResult) LastInsertId() (int64, error) { return r.LastID, r.LastIDErr }
func (r MockResult) RowsAffected() (int64, error) { return r.Affected, r.AffectedErr }

// MockStatement is a canned backend.Statement: every Query/Exec call
// returns whatever Rows/Result/Err is configured, regardless of the
// query text, mirroring the teacher's internal/sqlmock scope (a test
// double, not a SQL engine).
type MockStatement struct {
	RowsToReturn   *MockRows
	ResultToReturn backend.Result
	Err            error
	Canceled       bool
	Closed         bool

	Batch         []string
	BatchResult   backend.Result
	BatchErr      error
}

func (s *MockStatement) Query(ctx context.Context) (backend.Rows, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.RowsToReturn == nil {
		return &MockRows{}, nil
	}
	return s.RowsToReturn, nil
}

func (s *MockStatement) Exec(ctx context.Context) (backend.Result, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.ResultToReturn == nil {
		return MockResult{}, nil
	}
	return s.ResultToReturn, nil
}

// AddBatch records text for a later ExecBatch call.
func (s *MockStatement) AddBatch(text string) { s.Batch = append(s.Batch, text) }

// ExecBatch returns BatchResult/BatchErr regardless of what was queued,
// mirroring this package's "canned response" scope.
func (s *MockStatement) ExecBatch(ctx context.Context) (backend.Result, error) {
	if s.BatchErr != nil {
		return nil, s.BatchErr
	}
	if s.BatchResult == nil {
		return MockResult{Affected: int64(len(s.Batch))}, nil
	}
	return s.BatchResult, nil
}

func (s *MockStatement) SetFetchDirection(int)   {}
func (s *MockStatement) SetFetchSize(int)        {}
func (s *MockStatement) SetMaxFieldSize(int)     {}
func (s *MockStatement) SetQueryTimeout(int)      {}
func (s *MockStatement) SetLargeMaxRows(int64)    {}
func (s *MockStatement) Cancel() error            { s.Canceled = true; return nil }
func (s *MockStatement) Close() error             { s.Closed = true; return nil }

// MockConnection is a canned backend.Connection. PrepareFunc, when set,
// is consulted for each Prepare call so a test can return different
// statements for different query text; otherwise Statement is reused.
type MockConnection struct {
	Statement   *MockStatement
	PrepareFunc func(query string) (*MockStatement, error)
	MetadataVal backend.Metadata
	MetadataErr error
	CloseErr    error
	Closed      bool
}

func (c *MockConnection) Prepare(ctx context.Context, query string) (backend.Statement, error) {
	if c.PrepareFunc != nil {
		stmt, err := c.PrepareFunc(query)
		if err != nil {
			return nil, err
		}
		return stmt, nil
	}
	if c.Statement == nil {
		return nil, errors.New("sqlmock: no statement configured")
	}
	return c.Statement, nil
}

func (c *MockConnection) Metadata(ctx context.Context) (backend.Metadata, error) {
	return c.MetadataVal, c.MetadataErr
}

func (c *MockConnection) Close() error {
	c.Closed = true
	return c.CloseErr
}

// MockDriver is a canned backend.Driver returning a fixed Connection
// regardless of URL, the way the teacher's internal/sqlmock stands in
// for *sql.DB against driver.Driver in db_test.go-style tests.
type MockDriver struct {
	Conn *MockConnection
	Err  error
}

func (d *MockDriver) Open(ctx context.Context, url string, props map[string]string) (backend.Connection, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}
