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

// Package globmatch matches id-patterns (glob and bracket-expression
// syntax, e.g. "prod-*", "db[12]") against a set of known configuration
// IDs, the way an ExecutableBlock's "ext.id-pattern" syntax is expanded
// against a connection manager's registered IDs.
package globmatch

import "github.com/bmatcuk/doublestar/v4"

// Match returns the subset of candidates that match pattern, in the
// order they appear in candidates. An invalid pattern matches nothing.
// A pattern containing no glob metacharacters ('*', '?', '[') is
// compared for an exact, case-sensitive match, so a plain id-pattern
// such as "prod" behaves as a literal id lookup rather than a glob.
func Match(pattern string, candidates []string) []string {
	if pattern == "" {
		return nil
	}
	var out []string
	for _, candidate := range candidates {
		ok, err := doublestar.Match(pattern, candidate)
		if err != nil {
			continue
		}
		if ok {
			out = append(out, candidate)
		}
	}
	return out
}
