package router

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	logx "chorebot/pkg/logx"

	rtsup "chorebot/internal/runtime/supervisor"

	kit "chorebot/internal/transport"
)

type Command struct {
	Name        string   // without the leading slash, e.g. "add_chore"
	Aliases     []string // extra names routed to the same handler
	Description string   // menu text
	Usage       string
	Hidden      bool          // kept out of the Telegram menu
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

type Request struct {
	Update       kit.Update
	Chat         kit.ChatTarget
	FromID       int64
	FromUsername string
	Command      string
	Args         []string // whitespace-separated arguments
	ArgText      string   // everything after the command word, trimmed
	ReqID        string

	Sender kit.Sender
	Logger logx.Logger
}

// Reply sends plain text back to the chat and thread the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Sender.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

// ReplyHTML is Reply with HTML parse mode. The caller escapes user content.
func (r *Request) ReplyHTML(ctx context.Context, text string) error {
	_, err := r.Sender.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
	return err
}

type Config struct {
	Workers        int
	QueueSize      int // per worker
	DefaultTimeout time.Duration
	UnknownReply   string
	BusyReply      string
}

// CommandManager routes "/command" messages to handlers on a fixed worker
// pool. Updates are sharded by chat id, so one chat's commands run in the
// order they arrived while different chats proceed in parallel.
type CommandManager struct {
	mu    sync.RWMutex
	cmds  map[string]*Command
	order []*Command

	cfg    Config
	log    logx.Logger
	sender kit.Sender

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor
	shards  []chan func()
}

func NewCommandManager(log logx.Logger, sender kit.Sender, cfg Config) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	return &CommandManager{
		cmds:   map[string]*Command{},
		cfg:    cfg,
		log:    log,
		sender: sender,
	}
}

// Supervisor returns the dispatcher's internal supervisor (nil if not running).
func (m *CommandManager) Supervisor() *rtsup.Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

// SetCommands replaces the command table. Names and aliases are matched
// case-insensitively; a later entry wins on collision.
func (m *CommandManager) SetCommands(cmds []Command) {
	table := map[string]*Command{}
	order := make([]*Command, 0, len(cmds))
	for _, c := range cmds {
		name := normalizeName(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c
		cc.Name = name
		table[name] = &cc
		order = append(order, &cc)
		for _, a := range c.Aliases {
			if a = normalizeName(a); a != "" {
				table[a] = &cc
			}
		}
	}

	m.mu.Lock()
	m.cmds = table
	m.order = order
	m.mu.Unlock()
}

// Commands returns the registered commands in registration order.
func (m *CommandManager) Commands() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Command, 0, len(m.order))
	for _, c := range m.order {
		out = append(out, *c)
	}
	return out
}

func (m *CommandManager) lookup(name string) (Command, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cmds[name]
	if !ok {
		return Command{}, false
	}
	return *c, true
}

func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := m.cfg.Workers
	sup := rtsup.New(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)
	shards := make([]chan func(), workers)
	for i := range shards {
		shards[i] = make(chan func(), m.cfg.QueueSize)
	}

	m.runMu.Lock()
	m.sup = sup
	m.shards = shards
	m.running = true
	m.runMu.Unlock()

	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("shard_queue_cap", m.cfg.QueueSize))

	for i := 0; i < workers; i++ {
		idx := i
		jobs := shards[i]
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-jobs:
					// Middleware already recovers; this keeps the shard alive regardless.
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
		)
	}

	defer func() {
		m.runMu.Lock()
		m.running = false
		m.shards = nil
		m.runMu.Unlock()

		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.routeMessage(ctx, up)
		}
	}
}

func (m *CommandManager) routeMessage(root context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	name, argText, ok := splitCommand(msg.Text)
	if !ok {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	cmd, found := m.lookup(name)
	if !found {
		m.enqueue(root, msg.ChatID, func() {
			if _, err := m.sender.SendText(root, chat, m.cfg.UnknownReply, nil); err != nil {
				m.log.Warn("unknown-command reply failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
			}
		}, chat)
		return
	}

	rid := newReqID()
	req := &Request{
		Update:       up,
		Chat:         chat,
		FromID:       msg.FromID,
		FromUsername: msg.FromUsername,
		Command:      cmd.Name,
		Args:         strings.Fields(argText),
		ArgText:      argText,
		ReqID:        rid,
		Sender:       m.sender,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int("thread_id", msg.ThreadID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = m.cfg.DefaultTimeout
	}
	final := Chain(
		cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(timeout),
	)
	m.enqueue(root, msg.ChatID, func() { _ = final(root, req) }, chat)
}

func (m *CommandManager) enqueue(ctx context.Context, chatID int64, job func(), chat kit.ChatTarget) {
	m.runMu.Lock()
	shards := m.shards
	m.runMu.Unlock()
	if len(shards) == 0 {
		return
	}

	select {
	case shards[shardFor(chatID, len(shards))] <- job:
	default:
		m.log.Warn("command dropped: shard queue full", logx.Int64("chat_id", chatID))
		if m.cfg.BusyReply != "" {
			_, _ = m.sender.SendText(ctx, chat, m.cfg.BusyReply, nil)
		}
	}
}

func shardFor(chatID int64, n int) int {
	return int(uint64(chatID) % uint64(n))
}

// splitCommand parses "/name@bot rest of line". It returns false for text
// that is not a command.
func splitCommand(text string) (name, argText string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word, rest := text[1:], ""
	if i := strings.IndexFunc(word, unicode.IsSpace); i >= 0 {
		word, rest = word[:i], word[i:]
	}
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	word = normalizeName(word)
	if word == "" {
		return "", "", false
	}
	return word, strings.TrimSpace(rest), true
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/"))
}
