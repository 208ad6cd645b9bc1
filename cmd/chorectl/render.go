package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"chorebot/internal/chores"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var heading = color.New(color.FgGreen, color.OpBold)

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func sortedChatIDs(snap chores.Snapshot) []int64 {
	ids := make([]int64, 0, len(snap.Chats))
	for id := range snap.Chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func renderChats(out io.Writer, snap chores.Snapshot) {
	fmt.Fprintln(out, heading.Render(fmt.Sprintf("%d chats, %d chores", len(snap.Chats), snap.ChoreCount())))
	table := newTable(out, "Chat", "Chores", "Default users", "Tracked users")
	for _, id := range sortedChatIDs(snap) {
		st := snap.Chats[id]
		table.Append([]string{
			strconv.FormatInt(id, 10),
			strconv.Itoa(len(st.Chores)),
			strings.Join(st.DefaultAssignees, ", "),
			strconv.Itoa(len(st.AssignmentCounts)),
		})
	}
	table.Render()
}

// renderChores lists chores of one chat, or of every chat when chatID is 0.
func renderChores(out io.Writer, snap chores.Snapshot, chatID int64) {
	table := newTable(out, "Chat", "Key", "Titles", "Schedule", "Assignees", "Thread")
	for _, id := range sortedChatIDs(snap) {
		if chatID != 0 && id != chatID {
			continue
		}
		for _, c := range snap.Chats[id].Chores {
			thread := ""
			if c.ThreadID != 0 {
				thread = strconv.Itoa(c.ThreadID)
			}
			table.Append([]string{
				strconv.FormatInt(id, 10),
				strconv.Itoa(c.Key),
				strings.Join(c.Titles, ", "),
				c.Schedule,
				strings.Join(c.Assignees, ", "),
				thread,
			})
		}
	}
	table.Render()
}

func renderLeaderboard(out io.Writer, st *chores.ChatState) {
	table := newTable(out, "Assignee", "Count")
	for _, e := range chores.Leaderboard(st.AssignmentCounts) {
		table.Append([]string{e.Assignee, strconv.Itoa(e.Count)})
	}
	table.Render()
}
