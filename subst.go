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

// Substitute replaces every "${name}" / "${name:default}" reference in
// s (using tag's variable sigil and brace chars) with the matching
// entry from vars, or default when absent and a default was given, or
// left untouched verbatim when neither applies. Grounded on the
// teacher's paramRegex/formatRegexp substitution style (node.go),
// generalized from a fixed regex to a hand-rolled scanner so an
// arbitrary VariableTag dialect (not just the default braces) can
// drive it, the same way parser.go was generalized.
func Substitute(s string, tag VariableTag, vars map[string]string) string {
	prefix := tag.VariablePrefix()
	var b strings.Builder
	i := 0
	for i < len(s) {
		if i+len(prefix) <= len(s) && s[i:i+len(prefix)] == prefix {
			end, ok := findVariableEnd(s, i+len(prefix), tag)
			if !ok {
				b.WriteString(s[i:])
				break
			}
			inner := s[i+len(prefix) : end-1]
			name, def, hasDefault := splitNameDefault(inner)
			switch {
			case vars != nil && hasKey(vars, name):
				b.WriteString(vars[name])
			case hasDefault:
				b.WriteString(def)
			default:
				b.WriteString(s[i:end])
			}
			i = end
			continue
		}
		if s[i] == tag.EscapeChar && i+1 < len(s) && s[i+1] == tag.VariableChar {
			b.WriteByte(tag.VariableChar)
			i += 2
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// findVariableEnd returns the index just past the right-delimiter char
// matching a variable reference opened at pos, tracking nested left/
// right chars so a default value containing a brace doesn't end the
// reference early.
func findVariableEnd(s string, pos int, tag VariableTag) (int, bool) {
	depth := 1
	for pos < len(s) {
		switch s[pos] {
		case tag.LeftChar:
			depth++
		case tag.RightChar:
			depth--
			if depth == 0 {
				return pos + 1, true
			}
		}
		pos++
	}
	return 0, false
}

func splitNameDefault(inner string) (name, def string, hasDefault bool) {
	if idx := strings.IndexByte(inner, ':'); idx >= 0 {
		return inner[:idx], inner[idx+1:], true
	}
	return inner, "", false
}
