package repl

import (
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
)

// LineReader reads one line of input at a time
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// NewInputHandler creates a readline-backed reader with persistent history
func NewInputHandler(prompt string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     getHistoryFilePath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create readline")
	}
	return rl, nil
}

// getHistoryFilePath returns the path to the history file
func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "calchat_history")
	}
	return filepath.Join(homeDir, ".calchat_history")
}
