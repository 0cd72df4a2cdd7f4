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

import "strings"

// ParsedQuery is the immutable output of QueryParser.Parse: an ordered
// list of static text fragments with placeholder slots aligned to block
// indices, plus the blocks themselves.
type ParsedQuery struct {
	Parts  []string
	Blocks []ExecutableBlock
}

// DirectQuery reports whether every part is blank and at most one block
// has output - the engine may then return that block's Result verbatim
// instead of a list of queries.
func (q ParsedQuery) DirectQuery() bool {
	for _, part := range q.Parts {
		if strings.TrimSpace(part) != "" {
			return false
		}
	}
	outputs := 0
	for _, b := range q.Blocks {
		if b.Output {
			outputs++
			if outputs > 1 {
				return false
			}
		}
	}
	return true
}

// StaticQuery reports whether no block has output: the template is, in
// effect, a plain SQL statement decorated only with side-effecting
// procedure blocks.
func (q ParsedQuery) StaticQuery() bool {
	for _, b := range q.Blocks {
		if b.Output {
			return false
		}
	}
	return true
}

// OutputBlock returns the sole output block of a direct query, if any.
func (q ParsedQuery) OutputBlock() (ExecutableBlock, bool) {
	for _, b := range q.Blocks {
		if b.Output {
			return b, true
		}
	}
	return ExecutableBlock{}, false
}

// Render reassembles a textual form of the parsed query by interleaving
// Parts with the canonical rendering of each block, used by the
// parser-idempotence property test (spec.md §8).
func (q ParsedQuery) Render(tag VariableTag) string {
	var b strings.Builder
	slotToBlock := make(map[int]ExecutableBlock, len(q.Blocks))
	for _, blk := range q.Blocks {
		slotToBlock[blk.Index] = blk
	}
	for i, part := range q.Parts {
		b.WriteString(part)
		if blk, ok := slotToBlock[i]; ok {
			b.WriteString(renderBlock(blk, tag))
		}
	}
	return b.String()
}

func renderBlock(blk ExecutableBlock, tag VariableTag) string {
	var left, right string
	if blk.Output {
		left, right = tag.FunctionLeft(), tag.FunctionRight()
	} else {
		left, right = tag.ProcedureLeft(), tag.ProcedureRight()
	}
	var b strings.Builder
	b.WriteString(left)
	b.WriteByte(' ')
	if blk.Skip {
		b.WriteByte('-')
	}
	b.WriteString(blk.Extension)
	if blk.Content != "" {
		b.WriteString(": ")
		b.WriteString(blk.Content)
	}
	b.WriteByte(' ')
	b.WriteString(right)
	return b.String()
}
