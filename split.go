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
	"fmt"
	"strings"

	"github.com/jdbcx-go/jdbcx/internal/stringutil"
)

// SplitLabel is one "--;; <label>"-delimited section of a multi-query
// string, plus the (trimmed) body text that follows until the next
// label line or the end of the string.
type SplitLabel struct {
	Label string
	Body  string
}

const splitMarker = "--;;"

// Split breaks query on lines beginning with "--;;" into labeled
// sections, the way a single input string can carry several independent
// queries to submit as one call (spec.md §4.1 "Splitting"). A label
// line's text after the marker, trimmed, becomes the section's label;
// an unlabeled marker or text preceding the first marker is labeled
// "Query #N" (1-based). Walking is done line by line using the same
// allocation-free step-scan as the rest of the package's string
// handling, rather than strings.Split, since a large multi-statement
// script should not force an intermediate []string copy of every line.
func Split(query string) []SplitLabel {
	var sections []SplitLabel
	var curLabel string
	var curBody strings.Builder
	haveSection := false
	n := 0

	flush := func() {
		if !haveSection {
			return
		}
		n++
		label := curLabel
		if label == "" {
			label = fmt.Sprintf("Query #%d", n)
		}
		sections = append(sections, SplitLabel{Label: label, Body: strings.TrimSpace(curBody.String())})
		curBody.Reset()
		curLabel = ""
	}

	stringutil.WalkByStep(query, '\n', func(_ int, line string) bool {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(trimmed), splitMarker) {
			flush()
			haveSection = true
			curLabel = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(trimmed), splitMarker))
			return true
		}
		if !haveSection && strings.TrimSpace(trimmed) != "" {
			haveSection = true
		}
		curBody.WriteString(trimmed)
		curBody.WriteByte('\n')
		return true
	})
	flush()

	if len(sections) == 0 && strings.TrimSpace(query) != "" {
		sections = append(sections, SplitLabel{Label: "Query #1", Body: strings.TrimSpace(query)})
	}
	return sections
}
