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

// Bridge keywords are the two reserved extension names whose blocks the
// expansion engine augments with the bridge context and query-mode path
// before resolving them through the registry like any other extension.
const (
	BridgeKeywordTable  = "table"
	BridgeKeywordValues = "values"
)

// ExecutableBlock is an immutable syntactic region parsed out of a
// template: "{{ ... }}" (output=true, function-style) or
// "{% ... %}" (output=false, procedure-style).
type ExecutableBlock struct {
	// Index is the position in ParsedQuery.Parts this block refills.
	Index int

	// Extension is the block's extension name; empty means "use the
	// connection's default extension".
	Extension string

	// Tag is the VariableTag governing this block's own interpolations.
	Tag VariableTag

	// Props holds the block-local properties parsed from "(k=v,...)".
	Props *Properties

	// Content is the block body: everything after the first unescaped
	// ':' up to the block's close, or the whole remainder if there is
	// no ':'. Leading/trailing whitespace is trimmed.
	Content string

	// Output is true for function-style blocks ("{{ }}"), false for
	// procedure-style ("{% %}"): a false block's row result is
	// discarded during expansion.
	Output bool

	// Skip marks a block whose leading '-' marker told the parser to
	// drop it to the empty string without evaluation.
	Skip bool

	// IDs is the list of configuration IDs this block resolves to
	// after glob expansion against the connection manager's known IDs.
	// An empty slice means "use the value under the 'id' property, if
	// any"; it is empty when no id-pattern was given, when no IDLister
	// was supplied, or when the pattern matched no known ID.
	IDs []string
}

// useBridge reports whether this block's extension names one of the
// reserved bridge keywords.
func (b ExecutableBlock) useBridge() bool {
	return b.Extension == BridgeKeywordTable || b.Extension == BridgeKeywordValues
}

// UseBridge is the exported form of useBridge, used by the expansion
// engine's bridge-rewriting pass.
func (b ExecutableBlock) UseBridge() bool { return b.useBridge() }

// blockKey is the tuple that two blocks must share to be considered
// equivalent by ExpansionEngine's dedup pass: output, extension,
// content, and the resolved Option.ID. Index and layered default
// properties intentionally do not participate.
type blockKey struct {
	output    bool
	extension string
	content   string
	id        string
}

func (b ExecutableBlock) key() blockKey {
	id := ""
	if b.Props != nil {
		id = b.Props.Get(OptID.Name)
	}
	return blockKey{output: b.Output, extension: b.Extension, content: b.Content, id: id}
}

// Equivalent reports whether a and b would produce the same expansion
// result: the spec's "blocks with identical (extension, content, id,
// output) are considered equivalent".
func Equivalent(a, b ExecutableBlock) bool {
	return a.key() == b.key()
}
