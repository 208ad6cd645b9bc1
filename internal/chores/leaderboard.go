package chores

import (
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

type LeaderboardEntry struct {
	Assignee string `json:"assignee"`
	Count    int    `json:"count"`
}

// Leaderboard orders counters by count (highest first), then by name.
func Leaderboard(counts map[string]int) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(counts))
	for who, n := range counts {
		out = append(out, LeaderboardEntry{Assignee: who, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Assignee < out[j].Assignee
	})
	return out
}

// RenderLeaderboardTable draws entries as a borderless plain-text table.
func RenderLeaderboardTable(entries []LeaderboardEntry, header [2]string) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(header[:])
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, e := range entries {
		table.Append([]string{e.Assignee, strconv.Itoa(e.Count)})
	}
	table.Render()
	return strings.TrimRight(b.String(), "\n")
}

// RenderLeaderboard wraps the table in <pre> for Telegram's HTML mode.
func (c *Catalog) RenderLeaderboard(entries []LeaderboardEntry) string {
	return "<pre>" + html.EscapeString(RenderLeaderboardTable(entries, c.LeaderboardHeader)) + "</pre>"
}
