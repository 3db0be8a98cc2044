// ABOUTME: Interactive command loop of the support console
// ABOUTME: Parses slash commands and sends plain text lines to the open conversation

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/2389/petshop-support/internal/console"
	"github.com/2389/petshop-support/internal/thread"
)

func repl(ctx context.Context, c *console.Console, out *printer) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		prompt(c, out)

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil
		case input = <-lines:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "/") {
			// send failures other than a missing thread arrive as notices
			if _, err := c.SendText(ctx, input); errors.Is(err, console.ErrNoThread) {
				reportErr(out, err)
			}
			continue
		}

		cmd, args, _ := strings.Cut(input, " ")
		args = strings.TrimSpace(args)
		switch cmd {
		case "/quit", "/exit", "/q":
			return nil
		case "/help":
			printHelp(out)
		case "/list", "/ls":
			out.rows(c.Rows())
		case "/open":
			openConversation(ctx, c, out, args)
		case "/older":
			up, err := c.LoadOlder(ctx)
			if err != nil {
				reportErr(out, err)
				continue
			}
			out.messages(c, c.Messages()[:up.Added])
		case "/attach":
			if err := c.Composer().AttachImage(args); err != nil {
				reportErr(out, err)
				continue
			}
			out.infof("%d image(s) attached", len(c.Composer().Draft().Images))
		case "/detach":
			if !c.Composer().RemoveImage(args) {
				out.infof("No such attachment")
			}
		case "/order":
			o, err := c.Order(ctx, args)
			if err == nil {
				out.order(o)
			}
		case "/login":
			identifier, password, ok := strings.Cut(args, " ")
			if !ok {
				out.infof("Usage: /login <email|phone> <password>")
				continue
			}
			if err := c.Login(ctx, identifier, strings.TrimSpace(password)); err == nil {
				out.infof("Logged in as %s", c.Operator().Name)
				out.rows(c.Rows())
			}
		case "/logout":
			if err := c.Logout(); err != nil {
				reportErr(out, err)
				continue
			}
			out.infof("Logged out")
		case "/status":
			printStatus(c, out)
		default:
			out.infof("Unknown command %s, try /help", cmd)
		}
	}
}

func prompt(c *console.Console, out *printer) {
	if loader := c.Active(); loader != nil {
		out.printf("[%s]> ", loader.ConversationID())
		return
	}
	out.printf("> ")
}

// openConversation accepts a conversation id or a 1-based row number.
func openConversation(ctx context.Context, c *console.Console, out *printer, arg string) {
	if arg == "" {
		out.infof("Usage: /open <number|conversation id>")
		return
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		rows := c.Rows()
		if n < 1 || n > len(rows) {
			out.infof("No conversation #%d", n)
			return
		}
		id = rows[n-1].Conversation.ID
	}

	if _, err := c.Open(ctx, id); err != nil {
		reportErr(out, err)
		return
	}
	out.messages(c, c.Messages())
	if loader := c.Active(); loader != nil && loader.HasMore() {
		out.infof("/older loads earlier messages")
	}
}

// reportErr prints errors the console does not already surface as notices.
func reportErr(out *printer, err error) {
	switch {
	case errors.Is(err, console.ErrNotStarted), errors.Is(err, console.ErrNoCredential):
		out.infof("Not logged in. Use /login <email|phone> <password>")
	case errors.Is(err, console.ErrNoThread):
		out.infof("No conversation open. Use /open first")
	case errors.Is(err, thread.ErrNoMoreHistory):
		out.infof("Start of conversation")
	case errors.Is(err, thread.ErrInvalidState):
		out.infof("Still loading, try again")
	default:
		out.printf("%s %v\n", red("[error]"), err)
	}
}

func printStatus(c *console.Console, out *printer) {
	op := c.Operator()
	if op.ID == "" {
		out.infof("Not logged in")
		return
	}
	conn := yellow("offline")
	if c.Connected() {
		conn = green("online")
	}
	out.infof("%s (%s) realtime %s", op.Name, op.ID, conn)
	if loader := c.Active(); loader != nil {
		out.infof("Open: %s, %d messages loaded, state %s", loader.ConversationID(), loader.Len(), loader.State())
	}
	if d := c.Composer().Draft(); len(d.Images) > 0 {
		out.infof("Draft images: %s", strings.Join(d.Images, ", "))
	}
}

func printHelp(out *printer) {
	out.printf(`Commands:
  /list                      Show conversations (unread, responded, seen)
  /open <n|id>               Open a conversation and mark it seen
  /older                     Load earlier messages of the open conversation
  /attach <url>              Attach an image to the next message
  /detach <url>              Remove an attached image
  /order <id>                Show an order referenced in a conversation
  /login <email|phone> <pw>  Log in and remember the token
  /logout                    Log out and forget the token
  /status                    Show session and connection state
  /quit                      Exit
Any other line is sent to the open conversation.
`)
}
