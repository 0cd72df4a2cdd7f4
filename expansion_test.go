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
	"errors"
	"strings"
	"testing"

	"github.com/jdbcx-go/jdbcx/backend"
	"github.com/jdbcx-go/jdbcx/internal/sqlmock"
	"github.com/jdbcx-go/jdbcx/result"
)

// rowsListener is a Listener backed by a fixed set of string values, one
// row per value, single column.
type rowsListener struct {
	values []string
	err    error
}

func (l *rowsListener) OnQuery(ctx *QueryContext, content string, props *Properties) (result.Result, error) {
	if l.err != nil {
		return nil, l.err
	}
	rows := make([]result.Row, len(l.values))
	for i, v := range l.values {
		rows[i] = result.NewRow(v)
	}
	return result.NewBuffer([]string{"value"}, rows), nil
}

func testManager(t *testing.T, descriptors []*ExtensionDescriptor) *ConnectionManager {
	t.Helper()
	conn := &sqlmock.MockConnection{}
	driver := &sqlmock.MockDriver{Conn: conn}
	registry := NewExtensionRegistry(func() []*ExtensionDescriptor { return descriptors }, nil, nil)
	return NewConnectionManager(driver, conn, "jdbc:test", registry, nil, nil)
}

func valuesDescriptor(values ...string) *ExtensionDescriptor {
	return &ExtensionDescriptor{
		Name:                "fixed",
		SupportsDirectQuery: true,
		SupportsNoArguments: true,
		DefaultOptions:      NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			return &rowsListener{values: values}, nil
		},
	}
}

func TestExpansionSingleBlockMultiRow(t *testing.T) {
	mgr := testManager(t, []*ExtensionDescriptor{valuesDescriptor("a", "b")})
	pq, err := Parse("select {{fixed: ignored}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"select a", "select b"}
	if !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestExpansionCartesianOrder(t *testing.T) {
	registry := []*ExtensionDescriptor{
		{
			Name: "a", SupportsDirectQuery: false, DefaultOptions: NewProperties(),
			CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
				return &rowsListener{values: []string{"a0", "a1"}}, nil
			},
		},
		{
			Name: "b", SupportsDirectQuery: false, DefaultOptions: NewProperties(),
			CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
				return &rowsListener{values: []string{"b0", "b1"}}, nil
			},
		},
	}
	mgr := testManager(t, registry)
	pq, err := Parse("{{a:x}}-{{b:y}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"a0-b0", "a0-b1", "a1-b0", "a1-b1"}
	if !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestExpansionZeroRowBlockCollapsesWholeProduct(t *testing.T) {
	registry := []*ExtensionDescriptor{
		{
			Name: "a", SupportsDirectQuery: false, DefaultOptions: NewProperties(),
			CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
				return &rowsListener{values: nil}, nil
			},
		},
		{
			Name: "b", SupportsDirectQuery: false, DefaultOptions: NewProperties(),
			CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
				return &rowsListener{values: []string{"b0"}}, nil
			},
		},
	}
	mgr := testManager(t, registry)
	pq, err := Parse("select {{a:x}}, {{b:y}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(queries) != 0 {
		t.Fatalf("expected a zero-row block to collapse the whole product to no queries, got %v", queries)
	}
	if qr.DirectResult != nil {
		t.Fatalf("expected no direct result for a non-direct-query template")
	}
}

func TestExpansionDedupAlias(t *testing.T) {
	calls := 0
	descriptor := &ExtensionDescriptor{
		Name: "fixed", DefaultOptions: NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			calls++
			return &rowsListener{values: []string{"v"}}, nil
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	pq, err := Parse("{{fixed:same}}-{{fixed:same}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the listener to run once for equivalent blocks, ran %d times", calls)
	}
	if want := []string{"v-v"}; !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestExpansionNoOutputBlockExpandsEmpty(t *testing.T) {
	descriptor := &ExtensionDescriptor{
		Name: "sideeffect", DefaultOptions: NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			return &rowsListener{values: []string{"unused"}}, nil
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	pq, err := Parse("begin {% sideeffect: do-it %} end")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if want := []string{"begin  end"}; !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestExpansionSkipBlockNeverInvokesExtension(t *testing.T) {
	descriptor := &ExtensionDescriptor{
		Name: "fixed", DefaultOptions: NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			t.Fatalf("skipped block must not invoke its extension")
			return nil, nil
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	pq, err := Parse("{{-fixed:never}}literal")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if want := []string{"literal"}; !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestExpansionDirectQueryShortCircuit(t *testing.T) {
	mgr := testManager(t, []*ExtensionDescriptor{valuesDescriptor("only")})
	pq, err := Parse("{{fixed: whatever}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !pq.DirectQuery() {
		t.Fatalf("expected a direct query")
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(queries) != 0 {
		t.Fatalf("expected an empty query list, got %v", queries)
	}
	if qr.DirectResult == nil {
		t.Fatalf("expected a direct result to be populated")
	}
	rows, err := result.Drain(qr.DirectResult)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 1 || rows[0].Value(0).AsString() != "only" {
		t.Fatalf("unexpected direct result rows: %v", rows)
	}
}

func TestExpansionNoArgumentsDescribesOptions(t *testing.T) {
	defaults := NewProperties()
	defaults.Set("limit", "100")
	descriptor := &ExtensionDescriptor{
		Name: "fixed", SupportsDirectQuery: false, SupportsNoArguments: false,
		DefaultOptions: defaults,
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			return &rowsListener{}, nil
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	pq, err := Parse("{{fixed}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	if _, err := engine.Expand(ctx, pq, qr); err != nil {
		t.Fatalf("expand: %v", err)
	}
	if qr.DirectResult == nil {
		t.Fatalf("expected a synthetic describe result")
	}
	rows, err := result.Drain(qr.DirectResult)
	if err != nil || len(rows) != 1 {
		t.Fatalf("unexpected describe rows: %v, err %v", rows, err)
	}
	if rows[0].Value(0).AsString() != "limit" || rows[0].Value(1).AsString() != "100" {
		t.Fatalf("unexpected describe row: %v", rows[0])
	}
}

func TestExpansionWarningSubstitutesLiteralContent(t *testing.T) {
	descriptor := &ExtensionDescriptor{
		Name: "broken", DefaultOptions: NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			return nil, &Warning{Err: errors.New("extension unavailable")}
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	pq, err := Parse("fallback: {{broken: raw body}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(qr.Warnings) != 1 {
		t.Fatalf("expected one recorded warning, got %d", len(qr.Warnings))
	}
	if want := []string{"fallback: raw body"}; !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestExpansionCellNormalizationTrim(t *testing.T) {
	descriptor := &ExtensionDescriptor{
		Name: "fixed", DefaultOptions: NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			return &rowsListener{values: []string{"  padded  "}}, nil
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	pq, err := Parse("[{{fixed(result.string.trim=true): x}}]")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if want := []string{"[padded]"}; !equalStrings(queries, want) {
		t.Fatalf("got %v want %v", queries, want)
	}
}

func TestHandleStringSingleRowPerBlock(t *testing.T) {
	mgr := testManager(t, []*ExtensionDescriptor{valuesDescriptor("a", "b")})
	pq, err := Parse("select {{fixed: x}}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	got, err := engine.HandleString(ctx, pq, qr)
	if err != nil {
		t.Fatalf("handleString: %v", err)
	}
	if got != "select a" {
		t.Fatalf("got %q want %q", got, "select a")
	}
	if len(qr.Warnings) != 1 {
		t.Fatalf("expected a multi-row warning, got %d", len(qr.Warnings))
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExpansionIDGlobMergesRows(t *testing.T) {
	createCount := 0
	descriptor := &ExtensionDescriptor{
		Name: "fixed", DefaultOptions: NewProperties(),
		CreateListener: func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error) {
			createCount++
			return &rowsListener{values: []string{props.Get(OptID.Name)}}, nil
		},
	}
	mgr := testManager(t, []*ExtensionDescriptor{descriptor})
	mgr.RegisterKnownIDs("fixed", []string{"east", "west"})
	qp := QueryParser{}
	pq, err := qp.Parse("{{fixed.*: body}}", BraceTag, mgr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := mgr.CreateContext()
	engine := NewExpansionEngine(nil)
	qr := &QueryResult{}
	queries, err := engine.Expand(ctx, pq, qr)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if createCount != 2 {
		t.Fatalf("expected one listener per matched id, got %d", createCount)
	}
	if !strings.Contains(strings.Join(queries, ","), "east") || !strings.Contains(strings.Join(queries, ","), "west") {
		t.Fatalf("expected both ids represented, got %v", queries)
	}
}
