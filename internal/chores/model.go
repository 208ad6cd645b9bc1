package chores

import (
	"maps"
	"slices"
)

// Chore is one persisted chore definition. It never changes after creation;
// only the chat's counters move when it fires.
type Chore struct {
	Key       int      `json:"key"`
	Titles    []string `json:"titles"`
	Schedule  string   `json:"cronSchedule"`
	Assignees []string `json:"assignees"`

	// ThreadID is the forum topic replies go to (0 = chat root).
	ThreadID int `json:"messageThreadId,omitempty"`
}

func (c Chore) clone() Chore {
	c.Titles = slices.Clone(c.Titles)
	c.Assignees = slices.Clone(c.Assignees)
	return c
}

// ChatState is everything the bot knows about one chat.
type ChatState struct {
	Chores           []Chore        `json:"chores"`
	AssignmentCounts map[string]int `json:"assignmentCountMap"`
	DefaultAssignees []string       `json:"defaultUsers"`
}

func newChatState() *ChatState {
	return &ChatState{
		Chores:           []Chore{},
		AssignmentCounts: map[string]int{},
		DefaultAssignees: []string{},
	}
}

func (s *ChatState) clone() *ChatState {
	if s == nil {
		return nil
	}
	out := &ChatState{
		Chores:           make([]Chore, 0, len(s.Chores)),
		AssignmentCounts: maps.Clone(s.AssignmentCounts),
		DefaultAssignees: slices.Clone(s.DefaultAssignees),
	}
	for _, c := range s.Chores {
		out.Chores = append(out.Chores, c.clone())
	}
	if out.AssignmentCounts == nil {
		out.AssignmentCounts = map[string]int{}
	}
	if out.DefaultAssignees == nil {
		out.DefaultAssignees = []string{}
	}
	return out
}

// Snapshot is the whole persisted document: {"chats": {"<id>": ChatState}}.
type Snapshot struct {
	Chats map[int64]*ChatState `json:"chats"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Chats: make(map[int64]*ChatState, len(s.Chats))}
	for id, st := range s.Chats {
		if st == nil {
			continue
		}
		out.Chats[id] = st.clone()
	}
	return out
}

// ChoreCount returns the number of chore definitions across all chats.
func (s Snapshot) ChoreCount() int {
	n := 0
	for _, st := range s.Chats {
		if st != nil {
			n += len(st.Chores)
		}
	}
	return n
}
