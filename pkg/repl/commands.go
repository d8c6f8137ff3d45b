package repl

import (
	"strings"
)

// CommandType represents different types of commands
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeQuit
	CommandTypeReset
	CommandTypeEmail
	CommandTypeHelp
	CommandTypeNatural // A message for the assistant
)

// Command represents a parsed line of input
type Command struct {
	Type CommandType
	Arg  string // Email address for CommandTypeEmail
	Text string // Message for CommandTypeNatural
	Raw  string // Original input
}

// ParseCommand parses user input into a Command. Commands may be written
// with or without a leading slash.
func ParseCommand(input string) *Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return &Command{Type: CommandTypeUnknown, Raw: input}
	}

	fields := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	switch {
	case len(args) == 0 && (name == "quit" || name == "exit" || name == "q"):
		return &Command{Type: CommandTypeQuit, Raw: input}
	case len(args) == 0 && (name == "clear" || name == "reset"):
		return &Command{Type: CommandTypeReset, Raw: input}
	case len(args) == 0 && (name == "help" || name == "?"):
		return &Command{Type: CommandTypeHelp, Raw: input}
	case name == "email" && len(args) <= 1:
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		return &Command{Type: CommandTypeEmail, Arg: arg, Raw: input}
	}

	return &Command{Type: CommandTypeNatural, Text: input, Raw: input}
}

// GetHelp returns the help text shown by the help command
func GetHelp() string {
	return `Commands:
  help, ?          Show this help
  email <address>  Set the email used to look up your bookings
  email            Show the current email
  clear, reset     Start a new conversation
  quit, exit, q    Leave

Anything else is sent to the assistant, for example:
  What times are free on 2026-01-15?
  Book 2pm tomorrow with ann@example.com to discuss the roadmap
  What meetings do I have?
  Cancel my meeting on Friday
`
}
