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

import "testing"

func TestSplitSingleUnlabeled(t *testing.T) {
	sections := Split("select 1")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Label != "Query #1" || sections[0].Body != "select 1" {
		t.Fatalf("unexpected section: %#v", sections[0])
	}
}

func TestSplitLabeledSections(t *testing.T) {
	query := "--;; first\nselect 1\n--;; second\nselect 2"
	sections := Split(query)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %#v", len(sections), sections)
	}
	if sections[0].Label != "first" || sections[0].Body != "select 1" {
		t.Fatalf("unexpected first section: %#v", sections[0])
	}
	if sections[1].Label != "second" || sections[1].Body != "select 2" {
		t.Fatalf("unexpected second section: %#v", sections[1])
	}
}

func TestSplitUnlabeledMarkerGetsDefaultLabel(t *testing.T) {
	query := "--;;\nselect 1\n--;;\nselect 2"
	sections := Split(query)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Label != "Query #1" || sections[1].Label != "Query #2" {
		t.Fatalf("unexpected labels: %#v", sections)
	}
}

func TestSplitEmptyQuery(t *testing.T) {
	if sections := Split("   "); len(sections) != 0 {
		t.Fatalf("expected no sections for blank input, got %#v", sections)
	}
}
