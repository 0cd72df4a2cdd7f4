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

package globmatch

import (
	"reflect"
	"testing"
)

func TestMatchGlobStar(t *testing.T) {
	got := Match("prod-*", []string{"prod-east", "prod-west", "staging-east"})
	want := []string{"prod-east", "prod-west"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMatchBracketExpression(t *testing.T) {
	got := Match("db[12]", []string{"db1", "db2", "db3"})
	want := []string{"db1", "db2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMatchLiteralExactOnly(t *testing.T) {
	got := Match("prod", []string{"prod", "production", "prod2"})
	want := []string{"prod"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMatchEmptyPatternMatchesNothing(t *testing.T) {
	if got := Match("", []string{"a", "b"}); got != nil {
		t.Fatalf("expected no matches for an empty pattern, got %v", got)
	}
}

func TestMatchPreservesCandidateOrder(t *testing.T) {
	got := Match("*", []string{"b", "a", "c"})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
