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

// Package jdbcx is a database-connectivity shim that sits between an
// application and an underlying database client.
//
// Its distinguishing value is a query-rewriting engine: callers submit
// text that may embed inline executable blocks - named extensions that
// evaluate at parse time and whose results are substituted back, by
// Cartesian expansion, into one or more concrete queries which are then
// forwarded to a chosen backend through the opaque backend.Driver trait.
//
// The package owns four things: the QueryParser (template -> ParsedQuery),
// the ExtensionRegistry (name/alias resolution, default-extension
// selection), the ExpansionEngine (ParsedQuery -> concrete queries), and
// the ConnectionManager (owns the backend connection, cached metadata and
// dialect, and tracked child resources). It does not execute SQL itself,
// does not pool connections, and does not implement any particular
// extension - only the contract an extension must satisfy.
package jdbcx
