package chores

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateBalancesLoad(t *testing.T) {
	t.Parallel()
	alloc := NewAllocator(rand.NewSource(1))
	counts := map[string]int{}
	titles := []string{"dishes", "trash", "floor", "laundry", "windows", "bath", "plants"}

	got, err := alloc.Allocate(titles, []string{"alice", "bob", "carol"}, counts)
	require.NoError(t, err)
	require.Len(t, got, len(titles))

	for i, a := range got {
		require.Equal(t, titles[i], a.Title)
		require.Contains(t, []string{"alice", "bob", "carol"}, a.Assignee)
	}
	require.Equal(t, 7, counts["alice"]+counts["bob"]+counts["carol"])
	lo, hi := counts["alice"], counts["alice"]
	for _, n := range counts {
		lo, hi = min(lo, n), max(hi, n)
	}
	require.LessOrEqual(t, hi-lo, 1)
}

func TestAllocatePrefersLowestCount(t *testing.T) {
	t.Parallel()
	alloc := NewAllocator(rand.NewSource(7))
	counts := map[string]int{"alice": 5, "bob": 0, "carol": 0}

	got, err := alloc.Allocate([]string{"a", "b"}, []string{"alice", "bob", "carol"}, counts)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"bob", "carol"}, []string{got[0].Assignee, got[1].Assignee})
	require.Equal(t, map[string]int{"alice": 5, "bob": 1, "carol": 1}, counts)
}

func TestAllocateTieBreakCoversEveryCandidate(t *testing.T) {
	t.Parallel()
	alloc := NewAllocator(rand.NewSource(42))
	seen := map[string]int{}
	for range 300 {
		got, err := alloc.Allocate([]string{"dishes"}, []string{"alice", "bob", "carol"}, map[string]int{})
		require.NoError(t, err)
		seen[got[0].Assignee]++
	}
	require.Len(t, seen, 3)
	for who, n := range seen {
		require.Greater(t, n, 50, who)
	}
}

func TestAllocateIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	alloc := NewAllocator(rand.NewSource(1))
	counts := map[string]int{"alice": 3}

	got, err := alloc.Allocate([]string{"dishes"}, []string{"Alice", " ALICE ", "Bob"}, counts)
	require.NoError(t, err)
	require.Equal(t, "bob", got[0].Assignee)
	require.NotContains(t, counts, "Alice")
}

func TestAllocateWithoutAssignees(t *testing.T) {
	t.Parallel()
	alloc := NewAllocator(nil)
	_, err := alloc.Allocate([]string{"dishes"}, nil, map[string]int{})
	require.ErrorIs(t, err, ErrNoEligibleAssignees)

	_, err = alloc.Allocate([]string{"dishes"}, []string{" ", ""}, map[string]int{})
	require.ErrorIs(t, err, ErrNoEligibleAssignees)
}

func TestNormalizeAssignees(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"@alice", "bob"}, NormalizeAssignees([]string{" @Alice", "", "BOB", "@alice", "bob "}))
	require.Empty(t, NormalizeAssignees(nil))
}
