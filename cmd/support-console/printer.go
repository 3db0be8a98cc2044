// ABOUTME: Terminal output for the support console: banner, list rows, messages, and notices
// ABOUTME: Follows console changes in the background and prints new activity as it arrives

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/petshop-support/internal/chat"
	"github.com/2389/petshop-support/internal/console"
	"github.com/2389/petshop-support/internal/conversation"
	"github.com/2389/petshop-support/internal/notify"
	"github.com/2389/petshop-support/internal/thread"
)

var (
	dim     = color.New(color.Faint).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// printer serializes writes from the input loop and the change follower.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) infof(format string, args ...any) {
	p.printf("%s %s\n", cyan("::"), fmt.Sprintf(format, args...))
}

// Notify implements notify.Notifier.
func (p *printer) Notify(n notify.Notice) {
	if n.Level == notify.LevelError {
		p.printf("%s %s\n", red("!!"), n.String())
		return
	}
	p.infof("%s", n.Message)
}

func (p *printer) banner(server string) {
	p.printf("%s connected to %s\n", bold("support-console"), server)
	p.printf("Type /help for commands. Plain text is sent to the open conversation.\n\n")
}

func statusLabel(s conversation.Status) string {
	switch s {
	case conversation.StatusUnread:
		return yellow("unread   ")
	case conversation.StatusResponded:
		return green("responded")
	default:
		return dim("seen     ")
	}
}

func (p *printer) rows(rows []conversation.Row) {
	if len(rows) == 0 {
		p.infof("No conversations")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, r := range rows {
		name := r.Conversation.ID
		if customer, ok := r.Conversation.Customer(); ok && customer.Name != "" {
			name = customer.Name
		}
		preview := ""
		if lm := r.Conversation.LastMessage; lm != nil {
			preview = oneLine(lm.Content, 48)
			if preview == "" && lm.HasImages() {
				preview = "[image]"
			}
		}
		fmt.Fprintf(p.w, "%3d  %s  %-20s %s  %s\n",
			i+1, statusLabel(r.Status), name, dim(r.Conversation.ID), preview)
	}
}

func (p *printer) messages(c *console.Console, msgs []chat.Message) {
	names := senderNames(c)
	for _, m := range msgs {
		p.message(names, m)
	}
}

func (p *printer) message(names func(string) string, m chat.Message) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", dim(m.CreatedAt.Local().Format("Jan 02 15:04")), names(m.Sender), m.Content)
	for _, img := range m.Images {
		fmt.Fprintf(&b, " %s", magenta("[image "+img+"]"))
	}
	if m.OrderID != "" {
		fmt.Fprintf(&b, " %s", magenta("[order "+m.OrderID+"]"))
	}
	p.printf("%s\n", b.String())
}

func (p *printer) order(o *chat.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s  status=%s  total=%.2f\n", bold("Order"), o.ID, o.Status, o.Total)
	for _, it := range o.Items {
		fmt.Fprintf(p.w, "  %2d x %-28s %8.2f\n", it.Quantity, it.Name, it.Price)
	}
}

// senderNames resolves sender ids against the open conversation's participants.
func senderNames(c *console.Console) func(string) string {
	me := c.Operator().ID
	names := map[string]string{}
	if loader := c.Active(); loader != nil {
		if conv, ok := c.Conversation(loader.ConversationID()); ok {
			for _, p := range conv.Participants {
				names[p.ID] = p.Name
			}
		}
	}
	return func(id string) string {
		if id == me {
			return green("you")
		}
		if n := names[id]; n != "" {
			return bold(n)
		}
		return bold(id)
	}
}

// follow prints changes that arrive outside of a command until ctx ends.
func (p *printer) follow(ctx context.Context, c *console.Console) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-c.Changes():
			switch ch.Kind {
			case console.ConnectionChanged:
				if ch.Connected {
					p.infof("%s", green("realtime connected"))
				} else {
					p.infof("%s", yellow("realtime disconnected, reconnecting"))
				}
			case console.ThreadChanged:
				// Pushed messages only; command results are printed by the command.
				if ch.Thread.Hint == thread.ScrollToNewest && ch.Thread.Added == 1 {
					msgs := c.Messages()
					if len(msgs) > 0 {
						p.message(senderNames(c), msgs[len(msgs)-1])
					}
				}
			case console.ListChanged:
				if ch.ConversationID == "" {
					continue
				}
				if active := c.Active(); active != nil && active.ConversationID() == ch.ConversationID {
					continue
				}
				for _, r := range c.Rows() {
					if r.Conversation.ID == ch.ConversationID && r.Status == conversation.StatusUnread {
						p.infof("New activity in %s", ch.ConversationID)
						break
					}
				}
			}
		}
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
