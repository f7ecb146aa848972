// Package repl runs an interactive chat session in a terminal.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ai-gateway/chat-relay/internal/chat"
)

const (
	resetCommand = "/reset"
	exitCommand  = "/exit"
)

var (
	userColor  = color.New(color.FgCyan, color.Bold)
	botColor   = color.New(color.FgGreen)
	errorColor = color.New(color.FgRed)
	infoColor  = color.New(color.Faint)
)

// REPL reads user turns line by line and prints the replies.
type REPL struct {
	chatter    chat.Chatter
	transcript *chat.Transcript
	banner     string
}

func New(chatter chat.Chatter, transcript *chat.Transcript, banner string) *REPL {
	return &REPL{chatter: chatter, transcript: transcript, banner: banner}
}

// Run returns when in is exhausted, the user types /exit, or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	if r.banner != "" {
		infoColor.Fprintln(out, r.banner)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		userColor.Fprint(out, "User> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case exitCommand:
			return nil
		case resetCommand:
			r.transcript.Reset()
			infoColor.Fprintln(out, "chat history cleared")
			continue
		}

		switch res := r.transcript.Send(ctx, r.chatter, line).(type) {
		case chat.Success:
			botColor.Fprintln(out, res.Text)
		case chat.Failure:
			errorColor.Fprintln(out, chat.Text(res))
		}
	}
}
