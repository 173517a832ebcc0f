package id

import (
	"sort"
	"testing"
)

func TestNewIsUniqueAndSorted(t *testing.T) {
	const n = 1000
	seen := make(map[string]bool, n)
	ids := make([]string, 0, n)

	for i := 0; i < n; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("ulid length = %d, want 26", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("ids generated in sequence are not lexicographically ordered")
	}
}
