package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/conversation"
)

const (
	defaultPrompt = "You: "
	emailPrompt   = "Enter your email (for booking queries): "
)

// Chatter runs one user message against the assistant. Both the in-process
// orchestrator and the HTTP client satisfy it.
type Chatter interface {
	Chat(ctx context.Context, msg string, history conversation.History, email string) (string, conversation.History, error)
}

// REPL represents the interactive REPL
type REPL struct {
	chat    Chatter
	session *Session
	input   LineReader
	out     io.Writer
	spinner *Spinner
}

// Option configures a REPL
type Option func(*REPL)

// WithSpinner shows a "Thinking..." indicator while a message is processed.
// Only enable it when out is a terminal.
func WithSpinner() Option {
	return func(r *REPL) {
		r.spinner = NewSpinner(r.out, "Thinking...")
	}
}

// NewREPL creates a new REPL instance
func NewREPL(chat Chatter, session *Session, input LineReader, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		chat:    chat,
		session: session,
		input:   input,
		out:     out,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the REPL loop. It returns nil on quit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	defer r.Close()

	r.printWelcome()

	if r.session.Email() == "" {
		if err := r.askEmail(); err != nil {
			if err == io.EOF {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}
	}

	for {
		if ctx.Err() != nil {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		}

		r.input.SetPrompt(defaultPrompt)
		line, err := r.input.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return errors.Wrap(err, "input error")
		}

		cmd := ParseCommand(line)
		switch cmd.Type {
		case CommandTypeUnknown:
			continue
		case CommandTypeQuit:
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		case CommandTypeHelp:
			fmt.Fprint(r.out, GetHelp())
		case CommandTypeReset:
			r.session.Reset()
			fmt.Fprintln(r.out, "Conversation cleared.")
		case CommandTypeEmail:
			r.handleEmail(cmd.Arg)
		case CommandTypeNatural:
			r.handleMessage(ctx, cmd.Text)
		}
	}
}

func (r *REPL) askEmail() error {
	r.input.SetPrompt(emailPrompt)
	for {
		line, err := r.input.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return err
		}
		r.session.SetEmail(strings.TrimSpace(line))
		return nil
	}
}

func (r *REPL) handleEmail(email string) {
	if email == "" {
		current := r.session.Email()
		if current == "" {
			current = "(not set)"
		}
		fmt.Fprintf(r.out, "Email: %s\n", current)
		return
	}
	r.session.SetEmail(email)
	fmt.Fprintf(r.out, "Email set to %s\n", email)
}

// handleMessage sends one message. A failed call leaves the session
// history unchanged so the user can retry.
func (r *REPL) handleMessage(ctx context.Context, text string) {
	if r.spinner != nil {
		r.spinner.Start()
	}
	reply, history, err := r.chat.Chat(ctx, text, r.session.Snapshot(), r.session.Email())
	if r.spinner != nil {
		r.spinner.Stop()
	}

	if err != nil {
		log.Debug().Err(err).Str("session", r.session.ID).Msg("chat failed")
		fmt.Fprintf(r.out, "\nError: %v\n\n", err)
		return
	}

	r.session.Update(history)
	fmt.Fprintf(r.out, "\nBot: %s\n\n", reply)
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "Cal.com Chatbot")
	fmt.Fprintln(r.out, "Ask about free times, book, list, cancel or reschedule meetings.")
	fmt.Fprintln(r.out, "Type 'help' for commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

// Close releases the input reader
func (r *REPL) Close() error {
	if r.spinner != nil {
		r.spinner.Stop()
	}
	return r.input.Close()
}
