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
	"github.com/jdbcx-go/jdbcx/backend"
	"github.com/jdbcx-go/jdbcx/result"
)

// Listener evaluates one executable block's content against a live
// backend connection, returning the rows the block's slot expands to.
// Implementations are extensions; none ship with this module (spec.md
// §1 Non-goals: "does not implement any particular extension - only the
// contract an extension must satisfy").
type Listener interface {
	OnQuery(ctx *QueryContext, content string, props *Properties) (result.Result, error)
}

// ExtensionDescriptor is the capability trait an extension registers
// under (spec.md Design Notes §9, "Extensions as capability"): a name,
// aliases, documentation, default options, capability flags, and a
// listener factory. Deliberately not modeled with inheritance.
type ExtensionDescriptor struct {
	Name           string
	Aliases        []string
	Description    string
	Usage          string
	DefaultOptions *Properties

	// SupportsDirectQuery allows a direct ParsedQuery (spec.md §3,
	// "direct_query") to short-circuit straight to this extension's
	// Result instead of building a query list.
	SupportsDirectQuery bool

	// SupportsNoArguments allows this extension to be invoked with an
	// empty block body; when false, a no-argument direct-query block
	// is replaced with a synthetic "describe" table of this
	// extension's options instead (spec.md §4.3, step 2).
	SupportsNoArguments bool

	// RequiresBridgeContext marks an extension whose listener needs the
	// bridge.Context populated on its properties even for non-bridge
	// blocks (e.g. a federation extension that itself talks to the
	// bridge server). The expansion engine does not read this flag: it
	// attaches the bridge context only to bridge-keyword blocks.
	RequiresBridgeContext bool

	// CreateListener builds a Listener bound to one backend connection
	// and one block's effective properties.
	CreateListener func(ctx *QueryContext, conn backend.Connection, props *Properties) (Listener, error)
}
