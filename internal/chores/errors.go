package chores

import "errors"

var (
	ErrInvalidSchedule     = errors.New("chores: invalid schedule expression")
	ErrNoDefaultAssignees  = errors.New("chores: no default assignees configured")
	ErrNoEligibleAssignees = errors.New("chores: no eligible assignees")
	ErrNoTitles            = errors.New("chores: no chore titles")
	ErrUnknownChatData     = errors.New("chores: no data for chat")
	ErrInvalidKey          = errors.New("chores: unknown chore key")
	ErrPersistenceWrite    = errors.New("chores: persistence write failed")
	ErrTransportSend       = errors.New("chores: message send failed")
	ErrUsage               = errors.New("chores: malformed command arguments")
)
