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

package dialect

import "testing"

func TestDefaultIsConservative(t *testing.T) {
	d := Default()
	if d.PreferredFormat() != FormatText {
		t.Fatalf("got format %v want %v", d.PreferredFormat(), FormatText)
	}
	if d.PreferredCompression() != CompressionNone {
		t.Fatalf("got compression %v want %v", d.PreferredCompression(), CompressionNone)
	}
	if d.SupportsMultipleResultSetsPerStatement() {
		t.Fatalf("expected the default dialect to require one statement per query")
	}
}

func TestNewTracksCapabilities(t *testing.T) {
	d := New(FormatArrow, CompressionLZ4, true, "streaming", "cancel")
	if !d.Supports("streaming") || !d.Supports("cancel") {
		t.Fatalf("expected both registered capabilities to be reported")
	}
	if d.Supports("unregistered") {
		t.Fatalf("expected an unregistered capability to report false")
	}
	if !d.SupportsMultipleResultSetsPerStatement() {
		t.Fatalf("expected multiResultSets to round-trip")
	}
}

func TestCacheGetOrCreateCallsOnceAndReuses(t *testing.T) {
	c, err := NewCache(8)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	calls := 0
	create := func() Dialect {
		calls++
		return Default()
	}
	for i := 0; i < 3; i++ {
		c.GetOrCreate("duckdb", create)
	}
	if calls != 1 {
		t.Fatalf("expected create to run exactly once, got %d", calls)
	}
	if c.GetOrCreate("duckdb", create) != c.GetOrCreate("duckdb", create) {
		t.Fatalf("expected the same Dialect instance to be returned across calls")
	}
}

func TestCacheGetOrCreateDistinctProductsDontCollide(t *testing.T) {
	c, err := NewCache(8)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	a := c.GetOrCreate("duckdb", func() Dialect { return New(FormatArrow, CompressionNone, true) })
	b := c.GetOrCreate("clickhouse", func() Dialect { return New(FormatBinary, CompressionLZ4, false) })
	if a.PreferredFormat() == b.PreferredFormat() {
		t.Fatalf("expected distinct products to carry distinct dialects")
	}
}
