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
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jdbcx-go/jdbcx/bridge"
	"github.com/jdbcx-go/jdbcx/result"
)

// Bridge-routed properties the engine attaches to a rewritten block
// (spec.md §4.6); these are plain attribute keys, not resolvable
// Options, so they live as unexported constants rather than entries in
// the Option table.
const (
	propBridgeURL     = "bridge.url"
	propBridgeToken   = "bridge.token"
	propBridgeProduct = "bridge.product"
	propBridgeUser    = "bridge.user"
	propBridgePath    = "bridge.path"
)

// QueryResult is the sink ExpansionEngine reports into: a populated
// DirectResult short-circuits StatementWrapper straight to a result set
// (spec.md §4.3, "direct-query fast path"), and Warnings collects one
// recoverable per-block failure at most.
type QueryResult struct {
	DirectResult result.Result
	Warnings     []error
}

// ExpansionEngine turns a ParsedQuery into a finite list of concrete
// backend queries (spec.md §4.3). Grounded on the teacher's node.go
// NodeGroup.Accept, which walks a parsed expression tree left-to-right
// invoking one visitor per node and threading a shared *Context;
// generalized here from "render one SQL string" to "evaluate N
// independent blocks, dedup equivalent ones, then take their Cartesian
// product."
type ExpansionEngine struct {
	Logger *zap.Logger
}

// NewExpansionEngine builds an ExpansionEngine logging through logger
// (nil is fine: no-op).
func NewExpansionEngine(logger *zap.Logger) *ExpansionEngine {
	return &ExpansionEngine{Logger: logger}
}

// Expand runs the full four-step algorithm of spec.md §4.3 and returns
// the ordered list of concrete queries. The list is empty either when
// qr.DirectResult was populated instead, or when some output block's
// Result drained zero rows and the Cartesian product over every block
// is therefore empty (spec.md §8, "if any r_i = 0, it emits 0"); either
// way an empty list with a nil error is a successful expansion, not a
// failure - the caller exposes it as an empty result-set (spec.md §7).
func (e *ExpansionEngine) Expand(ctx *QueryContext, pq ParsedQuery, qr *QueryResult) ([]string, error) {
	blocks := e.rewriteBridgeBlocks(ctx, pq.Blocks)

	cellsByBlock, aliasOf, short, err := e.evaluateBlocks(ctx, pq, blocks, qr)
	if err != nil {
		return nil, err
	}
	if short {
		return nil, nil
	}

	rows := cartesianProduct(blocks, cellsByBlock, aliasOf)

	queries := make([]string, 0, len(rows))
	for _, row := range rows {
		queries = append(queries, materialize(pq.Parts, blocks, row, ctx))
	}
	return queries, nil
}

// HandleString is the single-string form used by StatementWrapper.
// addBatch: like Expand, but every block contributes at most one row to
// one final string rather than multiplying out a list of queries. An
// output block whose Result produced more than one row raises a warning
// instead (spec.md §4.5).
func (e *ExpansionEngine) HandleString(ctx *QueryContext, pq ParsedQuery, qr *QueryResult) (string, error) {
	blocks := e.rewriteBridgeBlocks(ctx, pq.Blocks)

	cellsByBlock, aliasOf, short, err := e.evaluateBlocks(ctx, pq, blocks, qr)
	if err != nil {
		return "", err
	}
	if short {
		return "", nil
	}

	row := make([]string, len(blocks))
	for i, b := range blocks {
		cells := cellsByBlock[i]
		if len(cells) > 1 && b.Output {
			qr.Warnings = append(qr.Warnings, &Warning{Err: errors.New("jdbcx: block produced multiple rows in single-string expansion, using the first")})
		}
		if len(cells) > 0 {
			row[i] = cells[0]
		}
	}
	for i := range blocks {
		if k, ok := aliasOf[i]; ok {
			row[i] = row[k]
		}
	}
	return materialize(pq.Parts, blocks, row, ctx), nil
}

// rewriteBridgeBlocks replaces every bridge-keyword block with a copy
// whose properties carry the bridge context and query-mode path; the
// copy keeps its keyword as Extension and is resolved through the
// registry like any other block (spec.md §4.3 step 1, §4.6).
func (e *ExpansionEngine) rewriteBridgeBlocks(ctx *QueryContext, blocks []ExecutableBlock) []ExecutableBlock {
	out := make([]ExecutableBlock, len(blocks))
	for i, b := range blocks {
		if !b.UseBridge() {
			out[i] = b
			continue
		}
		out[i] = e.rewriteForBridge(ctx, b)
	}
	return out
}

func (e *ExpansionEngine) rewriteForBridge(ctx *QueryContext, b ExecutableBlock) ExecutableBlock {
	bc := ctx.Manager.GetBridgeContext(context.Background())
	props := NewProperties(b.Props)
	props.Set(propBridgeURL, bc.URL)
	if bc.Token != "" {
		props.Set(propBridgeToken, bc.EncodedToken())
	}
	props.Set(propBridgeProduct, bc.Product)
	if bc.User != "" {
		props.Set(propBridgeUser, bc.User)
	}
	props.Set(propBridgePath, bridge.PathFor(b.Extension))

	rewritten := b
	rewritten.Props = props
	rewritten.Content = renderBlock(b, ctx.Tag)
	return rewritten
}

// evaluateBlocks runs step 2 of spec.md §4.3: dedup, extension
// resolution, listener invocation, and the direct-query/describe
// short-circuits. cellsByBlock[i] holds the normalized string cells for
// block i's own row set (empty for an alias, whose cells are read from
// its representative via aliasOf).
func (e *ExpansionEngine) evaluateBlocks(ctx *QueryContext, pq ParsedQuery, blocks []ExecutableBlock, qr *QueryResult) (cellsByBlock [][]string, aliasOf map[int]int, shortCircuit bool, err error) {
	n := len(blocks)
	cellsByBlock = make([][]string, n)
	aliasOf = make(map[int]int)
	directQuery := pq.DirectQuery()

	for i, b := range blocks {
		alias := -1
		for k := 0; k < i; k++ {
			if _, isAlias := aliasOf[k]; isAlias {
				continue
			}
			if Equivalent(blocks[k], b) {
				alias = k
				break
			}
		}
		if alias >= 0 {
			aliasOf[i] = alias
			continue
		}

		if b.Skip {
			cellsByBlock[i] = []string{""}
			continue
		}

		name := b.Extension
		if name == "" {
			name = ctx.Manager.DefaultExtension()
		}
		descriptor, ok := ctx.Manager.Registry().Resolve(name)
		if !ok {
			return nil, nil, false, &ResolutionError{Name: name, Err: ErrUnknownExtension}
		}

		effective := e.effectiveProperties(ctx, descriptor, b)

		res, warnErr := e.invokeListener(ctx, descriptor, b, effective)
		if warnErr != nil {
			var w *Warning
			if errors.As(warnErr, &w) {
				qr.Warnings = append(qr.Warnings, w)
				cellsByBlock[i] = []string{b.Content}
				continue
			}
			return nil, nil, false, &ExtensionError{Extension: name, Err: warnErr}
		}

		if b.Output && directQuery {
			dryrun := StringValue(OptExecDryrun.Resolve(effective)).Bool()
			noArgs := strings.TrimSpace(b.Content) == ""
			switch {
			case descriptor.SupportsDirectQuery || dryrun:
				qr.DirectResult = res
				return cellsByBlock, aliasOf, true, nil
			case noArgs && !descriptor.SupportsNoArguments:
				qr.DirectResult = describeTable(descriptor)
				return cellsByBlock, aliasOf, true, nil
			}
		}

		if !b.Output {
			cellsByBlock[i] = []string{""}
			continue
		}

		rows, drainErr := result.Drain(res)
		if drainErr != nil {
			return nil, nil, false, &ExtensionError{Extension: name, Err: drainErr}
		}
		cells := make([]string, 0, len(rows))
		for _, row := range rows {
			cells = append(cells, normalizeCell(cellValue(row), effective, ctx))
		}
		cellsByBlock[i] = cells
	}
	return cellsByBlock, aliasOf, false, nil
}

// effectiveProperties layers extension defaults under the manager's
// merged configuration under the block's own properties (spec.md §4.3
// step 2: "extension defaults < registry defaults < block properties"),
// then resolves every key and value against ctx.Variables.
func (e *ExpansionEngine) effectiveProperties(ctx *QueryContext, descriptor *ExtensionDescriptor, b ExecutableBlock) *Properties {
	layered := NewProperties()
	if b.Props != nil {
		layered = b.Props.Clone()
	}
	layered = layered.WithParent(ctx.Manager.Properties()).WithParent(descriptor.DefaultOptions)

	resolved := NewProperties()
	for k, v := range layered.Flatten() {
		resolved.Set(Substitute(k, ctx.Tag, ctx.Variables), Substitute(v, ctx.Tag, ctx.Variables))
	}
	return resolved
}

// invokeListener builds one Listener per configured ID (or once, when
// the block has none) and merges their results (spec.md §4.3 step 2,
// "multiple IDs").
func (e *ExpansionEngine) invokeListener(ctx *QueryContext, descriptor *ExtensionDescriptor, b ExecutableBlock, props *Properties) (result.Result, error) {
	ids := b.IDs
	if len(ids) == 0 {
		ids = []string{""}
	}
	results := make([]result.Result, 0, len(ids))
	for _, id := range ids {
		perID := props
		if id != "" {
			perID = props.Clone()
			perID.Set(OptID.Name, id)
		}
		listener, err := descriptor.CreateListener(ctx, ctx.Manager.Connection(), perID)
		if err != nil {
			return nil, err
		}
		res, err := listener.OnQuery(ctx, b.Content, perID)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return result.Merge(results...)
}

func cellValue(row result.Row) string {
	if row == nil || row.Len() == 0 {
		return ""
	}
	return row.Value(0).AsString()
}

// normalizeCell applies the RESULT_STRING_REPLACE/TRIM/ESCAPE toggles to
// one expanded cell (spec.md §4.3, "Cell normalization").
func normalizeCell(v string, props *Properties, ctx *QueryContext) string {
	if StringValue(OptResultStringReplace.Resolve(props)).Bool() {
		v = Substitute(v, ctx.Tag, ctx.Variables)
	}
	if StringValue(OptResultStringTrim.Resolve(props)).Bool() {
		v = strings.TrimSpace(v)
	}
	if StringValue(OptResultStringEscape.Resolve(props)).Bool() {
		target := OptResultStringEscapeTarget.Resolve(props)
		escape := OptResultStringEscapeChar.Resolve(props)
		if target != "" {
			v = strings.ReplaceAll(v, target, escape+target)
		}
	}
	return v
}

// describeTable builds the synthetic "describe" result set for a
// direct-query block with no arguments whose extension does not accept
// zero-arg invocation (spec.md §4.3 step 2).
func describeTable(descriptor *ExtensionDescriptor) result.Result {
	var flat map[string]string
	if descriptor.DefaultOptions != nil {
		flat = descriptor.DefaultOptions.Flatten()
	}
	names := make([]string, 0, len(flat))
	for k := range flat {
		names = append(names, k)
	}
	sort.Strings(names)

	rows := make([]result.Row, 0, len(names))
	for _, name := range names {
		rows = append(rows, result.NewRow(name, flat[name]))
	}
	return result.NewBuffer([]string{"name", "default"}, rows)
}

// cartesianProduct implements spec.md §4.3 step 3: a stable product over
// every non-alias block's cells, with each dedup alias copying its
// representative's cell into its own slot (spec.md §5, "Cartesian
// expansion is stable").
func cartesianProduct(blocks []ExecutableBlock, cellsByBlock [][]string, aliasOf map[int]int) [][]string {
	aliasesOf := make(map[int][]int, len(aliasOf))
	for i, k := range aliasOf {
		aliasesOf[k] = append(aliasesOf[k], i)
	}

	rows := [][]string{make([]string, len(blocks))}
	for i := range blocks {
		if _, isAlias := aliasOf[i]; isAlias {
			continue
		}
		cells := cellsByBlock[i]
		if len(cells) == 0 {
			// Only an output block whose listener drained zero rows
			// reaches here with no cells (every other block shape is
			// pre-seeded with a single "" cell in evaluateBlocks); a zero
			// row count for any one block collapses the whole product to
			// zero rows (spec.md §8).
			return nil
		}
		next := make([][]string, 0, len(rows)*len(cells))
		for _, base := range rows {
			for _, cell := range cells {
				row := append([]string(nil), base...)
				row[i] = cell
				for _, alias := range aliasesOf[i] {
					row[alias] = cell
				}
				next = append(next, row)
			}
		}
		rows = next
	}
	return rows
}

// materialize implements spec.md §4.3 step 4: write every block's cell
// into its slot, join the parts, and run a final variable substitution
// pass over the joined string.
func materialize(parts []string, blocks []ExecutableBlock, row []string, ctx *QueryContext) string {
	out := append([]string(nil), parts...)
	for i, b := range blocks {
		out[b.Index] = row[i]
	}
	return Substitute(strings.Join(out, ""), ctx.Tag, ctx.Variables)
}
