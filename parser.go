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
	"strings"

	"go.uber.org/zap"

	"github.com/jdbcx-go/jdbcx/internal/globmatch"
)

// IDLister is implemented by a config manager (typically the
// ConnectionManager the query will eventually run against) and consulted
// by QueryParser to expand an id-pattern glob against the known
// configuration IDs for a given extension.
type IDLister interface {
	KnownIDs(extension string) []string
}

// QueryParser converts an input template into a ParsedQuery. It is a
// pure function: it performs no I/O and never fails for syntactically
// well-formed input, raising a *ParseError only for structural mistakes
// (unterminated quote, malformed property name).
type QueryParser struct {
	// Logger receives debug-level notes for recoverable conditions,
	// e.g. an unclosed block emitted as literal text. A nil Logger
	// disables logging.
	Logger *zap.Logger
}

// Parse converts template into a ParsedQuery using tag as the block/
// variable delimiter dialect. ids, if non-nil, is used to resolve each
// block's id-pattern eagerly against the known IDs; it may be nil.
// Parsing the same template with the same tag and ids always
// yields an equal ParsedQuery (idempotence, spec.md §8).
func (p *QueryParser) Parse(template string, tag VariableTag, ids IDLister) (ParsedQuery, error) {
	s := &scanner{src: template, tag: tag, logger: p.Logger}
	return s.run(ids)
}

// Parse is the package-level convenience form using BraceTag and no
// config manager.
func Parse(template string) (ParsedQuery, error) {
	qp := QueryParser{}
	return qp.Parse(template, BraceTag, nil)
}

type scanner struct {
	src    string
	pos    int
	tag    VariableTag
	logger *zap.Logger
}

func (s *scanner) debugf(msg string, fields ...zap.Field) {
	if s.logger != nil {
		s.logger.Debug(msg, fields...)
	}
}

func (s *scanner) hasPrefixAt(pos int, prefix string) bool {
	return pos+len(prefix) <= len(s.src) && s.src[pos:pos+len(prefix)] == prefix
}

// run is the main scan loop: it walks the template left to right,
// accumulating static text into parts and emitting ExecutableBlocks in
// template order, per spec.md §5 ("Parser walks template left-to-right;
// block indices are emitted in template order").
func (s *scanner) run(ids IDLister) (ParsedQuery, error) {
	var parts []string
	var blocks []ExecutableBlock
	var buf strings.Builder

	funcLeft, funcRight := s.tag.FunctionLeft(), s.tag.FunctionRight()
	procLeft, procRight := s.tag.ProcedureLeft(), s.tag.ProcedureRight()

	flushText := func() {
		parts = append(parts, buf.String())
		buf.Reset()
	}

	emitSlot := func() int {
		parts = append(parts, "")
		return len(parts) - 1
	}

	for s.pos < len(s.src) {
		c := s.src[s.pos]

		if c == s.tag.EscapeChar && s.pos+1 < len(s.src) {
			if s.hasPrefixAt(s.pos+1, procLeft) {
				buf.WriteString(procLeft)
				s.pos += 1 + len(procLeft)
				continue
			}
			next := s.src[s.pos+1]
			if next == s.tag.LeftChar || next == s.tag.EscapeChar {
				buf.WriteByte(next)
				s.pos += 2
				continue
			}
			buf.WriteByte(next)
			s.pos += 2
			continue
		}

		if s.hasPrefixAt(s.pos, funcLeft) {
			if ok, err := s.consumeBlock(true, funcLeft, funcRight, &buf, flushText, emitSlot, &blocks); err != nil {
				return ParsedQuery{}, err
			} else if ok || s.pos >= len(s.src) {
				continue
			}
		}

		if s.hasPrefixAt(s.pos, procLeft) {
			if ok, err := s.consumeBlock(false, procLeft, procRight, &buf, flushText, emitSlot, &blocks); err != nil {
				return ParsedQuery{}, err
			} else if ok || s.pos >= len(s.src) {
				continue
			}
		}

		buf.WriteByte(c)
		s.pos++
	}
	parts = append(parts, buf.String())

	q := ParsedQuery{Parts: parts, Blocks: blocks}
	if ids != nil {
		resolveIDPatterns(&q, ids)
	}
	return q, nil
}

// consumeBlock attempts to parse one block starting at the current
// position (which must already match open). On success it flushes the
// pending static text, emits the block's slot(s) - including any
// preQuery/postQuery auxiliary slots - and appends to *blocks. If the
// block is unclosed, it emits the remaining template literally (per
// spec.md §4.1 edge cases) and reports ok=false so the caller stops
// scanning (there is nothing left to do).
func (s *scanner) consumeBlock(
	output bool,
	open, close string,
	buf *strings.Builder,
	flushText func(),
	emitSlot func() int,
	blocks *[]ExecutableBlock,
) (bool, error) {
	start := s.pos
	bodyStart := start + len(open)
	end, ok := findBlockEnd(s.src, bodyStart, open, close, s.tag)
	if !ok {
		s.debugf("unclosed block, emitting literally", zap.Int("pos", start))
		buf.WriteString(s.src[start:])
		s.pos = len(s.src)
		return false, nil
	}
	interior := s.src[bodyStart : end-len(close)]
	blk, err := parseBlockInterior(interior, s.tag)
	if err != nil {
		return false, err
	}
	blk.Output = output

	flushText()

	if pre, hasPre := takeAuxBlock(blk.Props, "preQuery", s.tag); hasPre {
		pre.Index = emitSlot()
		*blocks = append(*blocks, pre)
	}

	blk.Index = emitSlot()
	*blocks = append(*blocks, blk)

	if post, hasPost := takeAuxBlock(blk.Props, "postQuery", s.tag); hasPost {
		post.Index = emitSlot()
		*blocks = append(*blocks, post)
	}

	s.pos = end
	return true, nil
}

// findBlockEnd scans forward from pos (already past the opening
// delimiter) for the matching closing delimiter, tracking nesting of
// same-style open/close pairs and quoted strings so that a delimiter
// sequence inside a quoted property value or a nested block does not
// terminate the scan early (spec.md §4.1 "handles nested braces, ...
// quoted arguments").
func findBlockEnd(src string, pos int, open, close string, tag VariableTag) (int, bool) {
	depth := 1
	var quote byte
	for pos < len(src) {
		c := src[pos]
		if quote != 0 {
			if c == tag.EscapeChar && pos+1 < len(src) {
				pos += 2
				continue
			}
			if c == quote {
				if quote == '"' && pos+1 < len(src) && src[pos+1] == '"' {
					pos += 2
					continue
				}
				quote = 0
			}
			pos++
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			pos++
			continue
		}
		if c == tag.EscapeChar && pos+1 < len(src) {
			pos += 2
			continue
		}
		if pos+len(open) <= len(src) && src[pos:pos+len(open)] == open {
			depth++
			pos += len(open)
			continue
		}
		if pos+len(close) <= len(src) && src[pos:pos+len(close)] == close {
			depth--
			pos += len(close)
			if depth == 0 {
				return pos, true
			}
			continue
		}
		pos++
	}
	return 0, false
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func isIDPatternByte(c byte) bool {
	return isIdentByte(c) || c == '?' || c == '*' || c == '[' || c == ']' || c == '!' || c == '.'
}

// parseBlockInterior implements the property-parser state machine of
// spec.md §4.1 over a block's already-delimited interior text:
// "[-] [ ext [ "." id-pattern ] [ "(" k=v,... ")" ] [":" body] ]".
func parseBlockInterior(raw string, tag VariableTag) (ExecutableBlock, error) {
	blk := ExecutableBlock{Tag: tag, Props: NewProperties()}
	i := 0
	n := len(raw)

	skipWS := func() {
		for i < n && (raw[i] == ' ' || raw[i] == '\t' || raw[i] == '\n' || raw[i] == '\r') {
			i++
		}
	}

	skipWS()
	if i < n && raw[i] == '-' {
		blk.Skip = true
		i++
		skipWS()
	}

	if i >= n {
		return blk, nil
	}

	if !isIdentByte(raw[i]) || (raw[i] >= '0' && raw[i] <= '9') {
		blk.Content = strings.TrimSpace(raw[i:])
		return blk, nil
	}

	nameStart := i
	for i < n && isIdentByte(raw[i]) {
		i++
	}
	blk.Extension = strings.ToLower(raw[nameStart:i])

	if i < n && raw[i] == '.' {
		i++
		idStart := i
		for i < n && isIDPatternByte(raw[i]) {
			i++
		}
		pattern := raw[idStart:i]
		if pattern != "" {
			blk.Props.Set("__idPattern", pattern)
		}
	}

	skipWS()

	if i < n && raw[i] == '(' {
		end, err := parsePropertyList(raw, i+1, blk.Props, tag)
		if err != nil {
			return blk, err
		}
		i = end
		skipWS()
	}

	if i < n && raw[i] == ':' {
		i++
	}
	blk.Content = strings.TrimSpace(raw[i:])
	return blk, nil
}

// parsePropertyList parses "k = v, k2 = 'v2', ..." starting just past
// the opening '(' at pos, writing resolved entries into props and
// returning the index just past the matching ')'.
func parsePropertyList(raw string, pos int, props *Properties, tag VariableTag) (int, error) {
	n := len(raw)
	for {
		for pos < n && (raw[pos] == ' ' || raw[pos] == ',' || raw[pos] == '\t' || raw[pos] == '\n') {
			pos++
		}
		if pos >= n {
			return pos, &ParseError{Template: raw, Pos: pos, Reason: "unterminated property list"}
		}
		if raw[pos] == ')' {
			return pos + 1, nil
		}
		keyStart := pos
		for pos < n && (isIdentByte(raw[pos]) || raw[pos] == '.') {
			pos++
		}
		if pos == keyStart {
			return pos, &ParseError{Template: raw, Pos: pos, Reason: "expected property name"}
		}
		key := raw[keyStart:pos]
		for pos < n && raw[pos] == ' ' {
			pos++
		}
		if pos >= n || raw[pos] != '=' {
			return pos, &ParseError{Template: raw, Pos: pos, Reason: "expected '=' after property name " + key}
		}
		pos++
		for pos < n && raw[pos] == ' ' {
			pos++
		}
		value, next, err := parsePropertyValue(raw, pos, tag)
		if err != nil {
			return pos, err
		}
		props.Set(key, value)
		pos = next
		for pos < n && raw[pos] == ' ' {
			pos++
		}
		if pos < n && raw[pos] == ',' {
			pos++
		}
	}
}

// parsePropertyValue reads a bare value (up to ',' or ')') or a quoted
// one (single/double/back-tick), honoring '\\c' escapes inside quotes
// and doubled '"' to embed a literal quote, per spec.md §4.1.
func parsePropertyValue(raw string, pos int, tag VariableTag) (string, int, error) {
	n := len(raw)
	if pos < n && (raw[pos] == '\'' || raw[pos] == '"' || raw[pos] == '`') {
		quote := raw[pos]
		pos++
		var b strings.Builder
		for pos < n {
			c := raw[pos]
			if c == tag.EscapeChar && pos+1 < n {
				b.WriteByte(raw[pos+1])
				pos += 2
				continue
			}
			if c == quote {
				if quote == '"' && pos+1 < n && raw[pos+1] == '"' {
					b.WriteByte('"')
					pos += 2
					continue
				}
				return b.String(), pos + 1, nil
			}
			b.WriteByte(c)
			pos++
		}
		return "", pos, &ParseError{Template: raw, Pos: pos, Reason: "unterminated quoted property value"}
	}
	start := pos
	for pos < n && raw[pos] != ',' && raw[pos] != ')' {
		pos++
	}
	return strings.TrimSpace(raw[start:pos]), pos, nil
}

// takeAuxBlock extracts and removes the named property (preQuery or
// postQuery) from props, parsing its value as a no-output block spec
// using the same grammar as a block's interior.
func takeAuxBlock(props *Properties, name string, tag VariableTag) (ExecutableBlock, bool) {
	value, ok := props.Lookup(name)
	if !ok {
		return ExecutableBlock{}, false
	}
	delete(props.values, name)
	aux, err := parseBlockInterior(value, tag)
	if err != nil {
		aux = ExecutableBlock{Tag: tag, Props: NewProperties(), Content: value}
	}
	aux.Output = false
	aux.Tag = tag
	return aux, true
}

// resolveIDPatterns expands each block's "__idPattern" property against
// ids.KnownIDs(block.Extension) using glob/bracket-expression matching,
// populating block.IDs and clearing the transient property.
func resolveIDPatterns(q *ParsedQuery, ids IDLister) {
	for i := range q.Blocks {
		b := &q.Blocks[i]
		if b.Props == nil {
			continue
		}
		pattern, ok := b.Props.Lookup("__idPattern")
		if !ok {
			continue
		}
		delete(b.Props.values, "__idPattern")
		b.IDs = globmatch.Match(pattern, ids.KnownIDs(b.Extension))
	}
}
