package chores

import (
	"strconv"
	"strings"
)

// DefaultAssigneesMarker in the assignee section means "use the chat's
// default users".
const DefaultAssigneesMarker = "@default"

// AddChoreArgs is the parsed form of
// "<title,title...>;<schedule>;<assignee,assignee...|@default>".
type AddChoreArgs struct {
	Titles      []string
	Schedule    string
	Assignees   []string
	UseDefaults bool
}

// ParseAddChoreArgs splits /add_chore arguments. The schedule section is
// kept whole, so cron lists such as "1,3,5" survive. An empty assignee
// section, or one starting with @default, selects the default users.
func ParseAddChoreArgs(argText string) (AddChoreArgs, error) {
	argText = strings.TrimSpace(argText)
	if argText == "" {
		return AddChoreArgs{}, ErrUsage
	}
	parts := strings.SplitN(argText, ";", 3)
	if len(parts) < 2 {
		return AddChoreArgs{}, ErrUsage
	}

	args := AddChoreArgs{
		Titles:   normalizeTitles(strings.Split(parts[0], ",")),
		Schedule: strings.TrimSpace(parts[1]),
	}
	if len(args.Titles) == 0 || args.Schedule == "" {
		return AddChoreArgs{}, ErrUsage
	}

	var raw []string
	if len(parts) == 3 {
		raw = splitList(parts[2])
	}
	if len(raw) == 0 || strings.EqualFold(raw[0], DefaultAssigneesMarker) {
		args.UseDefaults = true
		return args, nil
	}
	args.Assignees = raw
	return args, nil
}

// ParseChoreKey reads the first argument of /remove_chore.
func ParseChoreKey(argText string) (int, error) {
	fields := strings.Fields(argText)
	if len(fields) == 0 {
		return 0, ErrUsage
	}
	key, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, ErrInvalidKey
	}
	return key, nil
}

// ParseUserList splits a comma separated user list.
func ParseUserList(argText string) []string {
	return splitList(argText)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
