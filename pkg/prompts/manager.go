// Package prompts renders the system instruction that opens every planner
// request.
package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/tools"
)

// OverrideFile is the file name looked up in the prompts directory
const OverrideFile = "system.txt"

var defaultTemplate = template.Must(template.New("system").Parse(defaultSystemPrompt))

// Manager renders the system prompt, preferring an override file over the
// embedded default. The safety rules are appended either way.
type Manager struct {
	promptsDir string
	generator  *ToolPromptGenerator
	now        func() time.Time
}

// PromptData contains data for the system prompt template
type PromptData struct {
	Today           string
	UserEmail       string
	DefaultTimezone string
	Operations      string
}

// NewManager creates a prompt manager with the default prompts directory
// (~/.calchat/prompts)
func NewManager(catalog *tools.Catalog) *Manager {
	home, _ := os.UserHomeDir()
	return NewManagerWithDir(catalog, filepath.Join(home, ".calchat", "prompts"))
}

// NewManagerWithDir creates a prompt manager with a custom prompts directory.
// An empty dir disables override files.
func NewManagerWithDir(catalog *tools.Catalog, promptsDir string) *Manager {
	return &Manager{
		promptsDir: promptsDir,
		generator:  NewToolPromptGenerator(catalog),
		now:        time.Now,
	}
}

// SetClock replaces the clock used for today's date
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SystemPrompt renders the system prompt for one chat call
func (m *Manager) SystemPrompt(userEmail string) string {
	data := PromptData{
		Today:           m.now().Format("2006-01-02"),
		UserEmail:       userEmail,
		DefaultTimezone: "UTC",
		Operations:      m.generator.GenerateToolSection(),
	}

	// Try the override file first
	if text, err := m.loadPromptFile(OverrideFile); err == nil {
		out, err := renderText(text, data)
		if err == nil {
			return withSafetyRules(out)
		}
		log.Warn().Err(err).Str("dir", m.promptsDir).Msg("Ignoring invalid prompt override")
	}

	var buf strings.Builder
	if err := defaultTemplate.Execute(&buf, data); err != nil {
		return withSafetyRules(defaultSystemPrompt)
	}
	return withSafetyRules(buf.String())
}

func withSafetyRules(prompt string) string {
	return strings.TrimRight(prompt, "\n") + "\n\n" + safetyRules
}

func (m *Manager) loadPromptFile(filename string) (string, error) {
	if m.promptsDir == "" {
		return "", os.ErrNotExist
	}
	data, err := os.ReadFile(filepath.Join(m.promptsDir, filename))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func renderText(text string, data PromptData) (string, error) {
	tmpl, err := template.New(OverrideFile).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse prompt template")
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to render prompt template")
	}
	return buf.String(), nil
}
