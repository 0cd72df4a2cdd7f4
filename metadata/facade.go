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

// Package metadata routes JDBC-style database-metadata queries to
// registered extensions where possible, and returns a trivial
// fixed-shape empty table everywhere else (spec.md Design Notes §9,
// "Metadata facade"): the core does not re-implement a full metadata
// interface, it only routes getCatalogs/getSchemas/getTables.
package metadata

import "github.com/jdbcx-go/jdbcx/result"

// SchemaLister is an optional capability an extension's Listener may
// implement to answer GetSchemas; an extension that doesn't implement
// it contributes nothing.
type SchemaLister interface {
	Schemas(catalog string) ([]string, error)
}

// TableLister is the GetTables analogue of SchemaLister.
type TableLister interface {
	Tables(catalog, schemaPattern, tablePattern string) ([]string, error)
}

// Facade answers metadata queries given a way to list extension names
// and look up an extension's listener instance by name.
type Facade struct {
	ExtensionNames func() []string
	Listener       func(extension string) (any, bool)
}

// GetCatalogs lists every registered extension name as a catalog.
func (f *Facade) GetCatalogs() *result.Buffer {
	var rows []result.Row
	for _, name := range f.ExtensionNames() {
		rows = append(rows, result.NewRow(name))
	}
	return result.NewBuffer([]string{"TABLE_CAT"}, rows)
}

// GetSchemas asks every extension that implements SchemaLister for its
// schemas under catalog.
func (f *Facade) GetSchemas(catalog string) (*result.Buffer, error) {
	var rows []result.Row
	for _, name := range f.ExtensionNames() {
		listener, ok := f.Listener(name)
		if !ok {
			continue
		}
		lister, ok := listener.(SchemaLister)
		if !ok {
			continue
		}
		schemas, err := lister.Schemas(catalog)
		if err != nil {
			return nil, err
		}
		for _, s := range schemas {
			rows = append(rows, result.NewRow(s, catalog))
		}
	}
	return result.NewBuffer([]string{"TABLE_SCHEM", "TABLE_CATALOG"}, rows), nil
}

// GetTables asks every extension that implements TableLister for its
// tables matching schemaPattern/tablePattern under catalog.
func (f *Facade) GetTables(catalog, schemaPattern, tablePattern string) (*result.Buffer, error) {
	var rows []result.Row
	for _, name := range f.ExtensionNames() {
		listener, ok := f.Listener(name)
		if !ok {
			continue
		}
		lister, ok := listener.(TableLister)
		if !ok {
			continue
		}
		tables, err := lister.Tables(catalog, schemaPattern, tablePattern)
		if err != nil {
			return nil, err
		}
		for _, tbl := range tables {
			rows = append(rows, result.NewRow(tbl, catalog))
		}
	}
	return result.NewBuffer([]string{"TABLE_NAME", "TABLE_CAT"}, rows), nil
}

// Empty returns the trivial fixed-shape empty table used for every
// metadata query Facade doesn't specifically implement.
func Empty(columns ...string) *result.Buffer {
	return result.NewBuffer(columns, nil)
}
