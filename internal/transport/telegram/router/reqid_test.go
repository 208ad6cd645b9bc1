package router

import (
	"strings"
	"testing"
)

func TestNewReqIDIsUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]struct{}, 100)
	for range 100 {
		id := newReqID()
		if !strings.Contains(id, "-") {
			t.Fatalf("id %q has no sequence part", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
