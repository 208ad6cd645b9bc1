package chores

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeaderboardOrder(t *testing.T) {
	t.Parallel()
	got := Leaderboard(map[string]int{"carol": 2, "alice": 5, "bob": 2})
	require.Equal(t, []LeaderboardEntry{
		{Assignee: "alice", Count: 5},
		{Assignee: "bob", Count: 2},
		{Assignee: "carol", Count: 2},
	}, got)
}

func TestRenderLeaderboard(t *testing.T) {
	t.Parallel()
	out := CatalogFor("de").RenderLeaderboard(Leaderboard(map[string]int{"<bob>": 1, "alice": 3}))
	require.True(t, strings.HasPrefix(out, "<pre>"))
	require.True(t, strings.HasSuffix(out, "</pre>"))
	require.Contains(t, out, "Aufgaben")
	require.Contains(t, out, "&lt;bob&gt;")
	require.Less(t, strings.Index(out, "alice"), strings.Index(out, "&lt;bob&gt;"))
}

func TestCatalogErrorText(t *testing.T) {
	t.Parallel()
	cat := CatalogFor("xx")
	require.Equal(t, DefaultLocale, cat.Locale)

	text, ok := cat.ErrorText(ErrInvalidKey)
	require.True(t, ok)
	require.Equal(t, cat.InvalidKey, text)

	text, ok = cat.ErrorText(errDiskFull)
	require.False(t, ok)
	require.Equal(t, cat.GenericError, text)

	require.Equal(t, "Biomüll rausbringen", cat.TrashTitle("Bio"))
	require.Equal(t, "🧹 dishes wurde alice zugewiesen.", cat.AssignmentLine(Assignment{Title: "dishes", Assignee: "alice"}))
}
