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

// Package backend describes the opaque wire-protocol collaborator this
// module forwards concrete, already-expanded queries to (spec.md §1:
// "the database wire protocols themselves ... consumed through an
// opaque BackendDriver trait"). Nothing in this module implements
// Driver; internal/sqlmock provides a test double the way the teacher's
// own internal/sqlmock stands in for *sql.DB against driver.Driver.
package backend

import "context"

// Driver opens backend connections for a given URL and flat property
// map. The module never interprets the URL itself beyond the jdbcx:/
// jdbc: prefix handling in ConnectionManager.CreateConnection.
type Driver interface {
	Open(ctx context.Context, url string, props map[string]string) (Connection, error)
}

// Connection is a single backend connection: it prepares statements and
// reports metadata, and is closed exactly once.
type Connection interface {
	Prepare(ctx context.Context, query string) (Statement, error)
	Metadata(ctx context.Context) (Metadata, error)
	Close() error
}

// Statement executes one already-expanded query text. SetFetch*/
// SetMax*/SetQueryTimeout mirror the attributes StatementWrapper copies
// onto a freshly allocated per-query statement when the dialect
// disallows multiple result sets per statement (spec.md §4.5).
type Statement interface {
	Query(ctx context.Context) (Rows, error)
	Exec(ctx context.Context) (Result, error)
	// AddBatch queues text for a later batched Exec (spec.md §4.5
	// "addBatch(text)"); ExecBatch runs every queued entry in order.
	AddBatch(text string)
	ExecBatch(ctx context.Context) (Result, error)
	SetFetchDirection(direction int)
	SetFetchSize(n int)
	SetMaxFieldSize(n int)
	SetQueryTimeout(seconds int)
	SetLargeMaxRows(n int64)
	Cancel() error
	Close() error
}

// Rows is a backend result cursor - the shape a Statement.Query call
// returns, scanned into result.Row values by the statement layer.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Result reports the outcome of a backend Exec call.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Metadata is the raw snapshot a Connection reports about itself;
// ConnectionManager.GetMetadata copies it into a jdbcx.ConnectionMetaData.
type Metadata struct {
	PackageName    string
	ProductName    string
	ProductVersion string
	DriverName     string
	DriverVersion  string
	UserName       string
	URL            string
}
