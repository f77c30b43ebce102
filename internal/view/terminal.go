package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/chatroom/internal/chat"
	"github.com/nfrund/chatroom/internal/domain"
)

// Session is the part of the chat manager the terminal drives.
type Session interface {
	Watch() (<-chan chat.Snapshot, func())
	SendGroupMessage(ctx context.Context, content string) error
	SendTyping(ctx context.Context) error
	SendPrivateMessage(ctx context.Context, recipient, content string) error
	OpenConversation(partner string) error
	CloseConversation(partner string)
	RegisterPrivateHandler(partner string, h chat.PrivateHandler)
}

// History loads earlier private messages.
type History interface {
	PrivateHistory(ctx context.Context, userA, userB string) ([]domain.PrivateMessage, error)
}

const helpText = `Commands:
  <text>              send to the room
  <text>\             continue on the next line
  /msg <user> <text>  send a private message
  /open <user>        open a private conversation and show its history
  /close <user>       close a private conversation
  /who                list online users
  /emoji [n]          list emojis, or add emoji n to the draft
  /help               show this help
  /quit               leave the room`

// Terminal is a line-based chat view. Input lines become messages and
// commands; snapshots from the session are printed as they change, so the
// newest output is always at the bottom.
type Terminal struct {
	session Session
	history History
	in      io.Reader
	out     io.Writer
	self    string
	now     func() time.Time
	typing  *TypingNotifier
	logger  *slog.Logger

	outMu sync.Mutex

	draft      strings.Builder
	seen       map[domain.MessageID]bool
	lastState  chat.State
	lastOnline []string
	lastTyping string
	lastUnread map[string]int
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithClock replaces the clock used to format message times.
func WithClock(now func() time.Time) TerminalOption {
	return func(t *Terminal) {
		if now != nil {
			t.now = now
		}
	}
}

// WithTypingWindow sets how often typing is forwarded to the room.
func WithTypingWindow(window time.Duration) TerminalOption {
	return func(t *Terminal) {
		if window > 0 {
			t.typing = NewTypingNotifier(window, t.session.SendTyping)
		}
	}
}

// NewTerminal creates a terminal for self. history may be nil.
func NewTerminal(session Session, history History, self string, in io.Reader, out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		session:    session,
		history:    history,
		in:         in,
		out:        out,
		self:       self,
		now:        time.Now,
		logger:     slog.Default().With("component", "terminal"),
		seen:       make(map[domain.MessageID]bool),
		lastUnread: make(map[string]int),
	}
	t.typing = NewTypingNotifier(chat.DefaultTypingExpiry, session.SendTyping)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run reads input until /quit, end of input, ctx cancellation or the end of
// the session.
func (t *Terminal) Run(ctx context.Context) error {
	watch, cancel := t.session.Watch()
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	t.println("Type /help for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil

		case snap, ok := <-watch:
			if !ok {
				return nil
			}
			t.Render(snap)

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := t.handleLine(ctx, line); quit {
				return nil
			}
		}
	}
}

// handleLine executes one input line and reports whether to quit.
func (t *Terminal) handleLine(ctx context.Context, line string) bool {
	if strings.HasSuffix(line, `\`) {
		t.draft.WriteString(strings.TrimSuffix(line, `\`))
		t.draft.WriteString("\n")
		if _, err := t.typing.Notify(ctx); err != nil && !errors.Is(err, domain.ErrNotConnected) {
			t.logger.Debug("Typing notification failed", "error", err)
		}
		return false
	}

	if strings.HasPrefix(strings.TrimSpace(line), "/") {
		return t.command(ctx, strings.Fields(line))
	}

	content := Normalize(t.draft.String() + line)
	t.draft.Reset()
	t.report(t.session.SendGroupMessage(ctx, content))
	return false
}

func (t *Terminal) command(ctx context.Context, args []string) bool {
	switch args[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		t.println(helpText)

	case "/who":
		t.println("online: " + strings.Join(t.lastOnline, ", "))

	case "/msg":
		if len(args) < 3 {
			t.println("usage: /msg <user> <text>")
			return false
		}
		content := Normalize(strings.Join(args[2:], " "))
		t.report(t.session.SendPrivateMessage(ctx, args[1], content))

	case "/open":
		if len(args) != 2 {
			t.println("usage: /open <user>")
			return false
		}
		t.open(ctx, args[1])

	case "/close":
		if len(args) != 2 {
			t.println("usage: /close <user>")
			return false
		}
		t.session.CloseConversation(args[1])
		t.println("closed conversation with " + args[1])

	case "/emoji":
		t.emoji(args[1:])

	default:
		t.println("unknown command " + args[0] + ", try /help")
	}
	return false
}

func (t *Terminal) open(ctx context.Context, partner string) {
	if partner == t.self {
		t.report(domain.ErrSelfConversation)
		return
	}

	// Messages arriving while the history loads are held back and printed
	// after it, so none is lost or counted as unread.
	conv := &conversation{loading: true, print: t.printPrivate}
	t.session.RegisterPrivateHandler(partner, conv.deliver)
	if err := t.session.OpenConversation(partner); err != nil {
		t.session.CloseConversation(partner)
		t.report(err)
		return
	}
	delete(t.lastUnread, partner)

	var history []domain.PrivateMessage
	if t.history != nil {
		messages, err := t.history.PrivateHistory(ctx, t.self, partner)
		if err != nil {
			t.report(err)
		}
		history = messages
	}
	conv.loaded(history)

	t.println("conversation with " + partner + " open, /msg " + partner + " <text> to reply")
}

// conversation prints the private messages of one open conversation.
type conversation struct {
	mu      sync.Mutex
	loading bool
	pending []domain.PrivateMessage
	print   func(domain.PrivateMessage)
}

func (c *conversation) deliver(pm domain.PrivateMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		c.pending = append(c.pending, pm)
		return nil
	}
	c.print(pm)
	return nil
}

// loaded prints the history followed by the messages held back while it
// loaded, skipping those the history already contains.
func (c *conversation) loaded(history []domain.PrivateMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[domain.MessageID]bool, len(history))
	for _, pm := range history {
		if pm.ID != "" {
			seen[pm.ID] = true
		}
		c.print(pm)
	}
	for _, pm := range c.pending {
		if !seen[pm.ID] {
			c.print(pm)
		}
	}
	c.pending = nil
	c.loading = false
}

func (t *Terminal) emoji(args []string) {
	if len(args) == 0 {
		var b strings.Builder
		for i, e := range Emojis {
			fmt.Fprintf(&b, "%d:%s ", i, e)
		}
		t.println(strings.TrimSpace(b.String()))
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		t.println("usage: /emoji [n]")
		return
	}
	draft, err := AddEmoji(t.draft.String(), index)
	if err != nil {
		t.println(err.Error())
		return
	}
	t.draft.Reset()
	t.draft.WriteString(draft)
	t.println("draft: " + draft)
}

// report prints user-facing failures.
func (t *Terminal) report(err error) {
	switch {
	case err == nil, errors.Is(err, domain.ErrEmptyMessage):
	case errors.Is(err, domain.ErrNotConnected):
		t.println("! not connected yet, try again in a moment")
	default:
		t.println("! " + err.Error())
	}
}

// Render prints whatever changed since the previous snapshot.
func (t *Terminal) Render(snap chat.Snapshot) {
	if snap.State != t.lastState {
		t.lastState = snap.State
		t.println("* " + describeState(snap.State))
	}

	for _, ev := range snap.Messages {
		if t.seen[ev.ID] {
			continue
		}
		t.seen[ev.ID] = true
		t.println(t.formatEvent(ev))
	}

	if !slices.Equal(snap.Online, t.lastOnline) {
		t.lastOnline = slices.Clone(snap.Online)
		t.println("* online: " + strings.Join(snap.Online, ", "))
	}

	typing := ""
	if snap.Typing != nil {
		typing = snap.Typing.Username
	}
	if typing != t.lastTyping {
		t.lastTyping = typing
		if typing != "" {
			t.println("* " + typing + " is typing...")
		}
	}

	for partner, n := range snap.Unread {
		if n > t.lastUnread[partner] {
			t.println(fmt.Sprintf("* %d unread from %s, /open %s to read", n, partner, partner))
		}
	}
	t.lastUnread = snap.Unread
}

func describeState(s chat.State) string {
	switch s {
	case chat.StateConnecting:
		return "connecting..."
	case chat.StateConnected:
		return "connected"
	case chat.StateReconnecting:
		return "connection failed, retrying"
	default:
		return "disconnected"
	}
}

func (t *Terminal) formatEvent(ev domain.ChatEvent) string {
	when := FormatTime(ev.Timestamp.Time, t.now())
	switch ev.Type {
	case domain.EventJoin:
		return fmt.Sprintf("[%s] * %s joined", when, ev.Sender)
	case domain.EventLeave:
		return fmt.Sprintf("[%s] * %s left", when, ev.Sender)
	default:
		return fmt.Sprintf("[%s] %s: %s", when, ev.Sender, ev.Content)
	}
}

func (t *Terminal) printPrivate(pm domain.PrivateMessage) {
	when := FormatTime(pm.Timestamp.Time, t.now())
	t.println(fmt.Sprintf("[%s] (private) %s -> %s: %s", when, pm.Sender, pm.Recipient, pm.Content))
}

// println is safe to call from handler goroutines.
func (t *Terminal) println(s string) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fmt.Fprintln(t.out, s)
}
