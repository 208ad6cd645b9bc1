// Package commands implements the chat commands of the chore bot on top of
// the chores registry.
package commands

import (
	"context"
	"errors"
	"strings"

	"chorebot/internal/chores"
	"chorebot/internal/storage"
	"chorebot/internal/transport/telegram/router"
)

type Deps struct {
	Registry   *chores.Registry
	Catalog    *chores.Catalog
	BotVersion string
}

type Handlers struct {
	reg     *chores.Registry
	cat     *chores.Catalog
	version string
}

func New(d Deps) *Handlers {
	if d.Catalog == nil {
		d.Catalog = d.Registry.Catalog()
	}
	if strings.TrimSpace(d.BotVersion) == "" {
		d.BotVersion = "dev"
	}
	return &Handlers{reg: d.Registry, cat: d.Catalog, version: d.BotVersion}
}

// Commands returns the command table in menu order.
func (h *Handlers) Commands() []router.Command {
	return []router.Command{
		h.cmd("start", "/start", h.start),
		h.cmd("help", "/help", h.help),
		h.cmd("add_chore", "/add_chore <title,...>;<cron|@now>;<user,...|@default>", h.addChore),
		h.cmd("remove_chore", "/remove_chore <key>", h.removeChore),
		h.cmd("list_chores", "/list_chores", h.listChores),
		h.cmd("show_leaderboard", "/show_leaderboard", h.showLeaderboard),
		h.cmd("trash", "/trash <label>", h.trash),
		h.cmd("set_default_users", "/set_default_users <user,...>", h.setDefaultUsers),
		h.cmd("version", "/version", h.showVersion),
	}
}

func (h *Handlers) cmd(name, usage string, fn router.HandlerFunc) router.Command {
	return router.Command{
		Name:        name,
		Description: h.cat.Commands[name],
		Usage:       usage,
		Handle:      fn,
	}
}

// HelpText lists every command with its localized description.
func (h *Handlers) HelpText() string {
	lines := []string{h.cat.HelpHeader}
	for _, c := range h.Commands() {
		lines = append(lines, "/"+c.Name+" - "+c.Description)
	}
	return strings.Join(lines, "\n")
}

func (h *Handlers) start(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, h.cat.Welcome)
}

func (h *Handlers) help(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, h.HelpText())
}

func (h *Handlers) addChore(ctx context.Context, req *router.Request) error {
	args, err := chores.ParseAddChoreArgs(req.ArgText)
	if err != nil {
		return h.replyErr(ctx, req, err)
	}
	res, err := h.reg.AddChore(ctx, req.Chat.ChatID, chores.AddChoreRequest{
		Titles:      args.Titles,
		Schedule:    args.Schedule,
		Assignees:   args.Assignees,
		UseDefaults: args.UseDefaults,
		ThreadID:    req.Chat.ThreadID,
	})
	if err != nil {
		return h.replyErr(ctx, req, err)
	}
	if res.Immediate {
		if res.Text == "" {
			return nil
		}
		return req.Reply(ctx, res.Text)
	}
	return req.Reply(ctx, h.cat.AddOK)
}

func (h *Handlers) removeChore(ctx context.Context, req *router.Request) error {
	key, err := chores.ParseChoreKey(req.ArgText)
	if errors.Is(err, chores.ErrUsage) {
		return req.Reply(ctx, h.cat.RemoveUsage)
	}
	if err == nil {
		err = h.reg.RemoveChore(ctx, req.Chat.ChatID, key)
	}
	if err != nil {
		return h.replyErr(ctx, req, err)
	}
	return req.Reply(ctx, h.cat.RemoveOK)
}

func (h *Handlers) listChores(ctx context.Context, req *router.Request) error {
	list, ok := h.reg.ListChores(req.Chat.ChatID)
	switch {
	case !ok:
		return req.Reply(ctx, h.cat.NoChatData)
	case len(list) == 0:
		return req.Reply(ctx, h.cat.NoChores)
	}
	return req.Reply(ctx, h.cat.FormatChoreList(list))
}

func (h *Handlers) showLeaderboard(ctx context.Context, req *router.Request) error {
	counts, ok := h.reg.AssignmentCounts(req.Chat.ChatID)
	if !ok || len(counts) == 0 {
		return req.Reply(ctx, h.cat.NoChatData)
	}
	return req.ReplyHTML(ctx, h.cat.RenderLeaderboard(chores.Leaderboard(counts)))
}

func (h *Handlers) setDefaultUsers(ctx context.Context, req *router.Request) error {
	users := chores.ParseUserList(req.ArgText)
	if len(users) == 0 {
		return req.Reply(ctx, h.cat.DefaultsUsage)
	}
	if err := h.reg.SetDefaultAssignees(ctx, req.Chat.ChatID, users); err != nil {
		if errors.Is(err, chores.ErrNoEligibleAssignees) {
			return req.Reply(ctx, h.cat.DefaultsUsage)
		}
		return h.replyErr(ctx, req, err)
	}
	return req.Reply(ctx, h.cat.DefaultsOK)
}

// trash assigns "<label> trash" right now to the chat's default users.
func (h *Handlers) trash(ctx context.Context, req *router.Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, h.cat.TrashUsage)
	}
	res, err := h.reg.AddChore(ctx, req.Chat.ChatID, chores.AddChoreRequest{
		Titles:      []string{h.cat.TrashTitle(req.Args[0])},
		Schedule:    chores.ImmediateSchedule,
		UseDefaults: true,
		ThreadID:    req.Chat.ThreadID,
	})
	if err != nil {
		return h.replyErr(ctx, req, err)
	}
	if res.Text == "" {
		return nil
	}
	return req.Reply(ctx, res.Text)
}

func (h *Handlers) showVersion(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, h.cat.Version(h.version, storage.DataVersion))
}

// replyErr answers with the error's fixed text. Errors without one are
// returned so the request log records them.
func (h *Handlers) replyErr(ctx context.Context, req *router.Request, err error) error {
	text, known := h.cat.ErrorText(err)
	if rerr := req.Reply(ctx, text); rerr != nil {
		return rerr
	}
	if !known {
		return err
	}
	return nil
}
