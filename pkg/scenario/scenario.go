// Package scenario drives a scripted conversation through the assistant and
// checks each reply against simple expectations.
package scenario

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/soypete/calchat/pkg/conversation"
)

//go:embed scenarios/*.yaml
var builtinFS embed.FS

// BuiltinName is the name of the scenario shipped with the binary
const BuiltinName = "walkthrough"

// Suite is an ordered list of steps sharing one conversation
type Suite struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	UserEmail   string `yaml:"user_email" json:"user_email"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// Step is one user message and the expectations on the reply.
// Matching is case-insensitive.
type Step struct {
	Name        string   `yaml:"name" json:"name"`
	Message     string   `yaml:"message" json:"message"`
	Contains    []string `yaml:"contains,omitempty" json:"contains,omitempty"`
	NotContains []string `yaml:"not_contains,omitempty" json:"not_contains,omitempty"`
}

// StepResult is the outcome of a single step
type StepResult struct {
	Step     Step          `json:"step"`
	Reply    string        `json:"reply"`
	Err      error         `json:"-"`
	Failures []string      `json:"failures,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Passed reports whether the step got a reply that met every expectation
func (r StepResult) Passed() bool {
	return r.Err == nil && len(r.Failures) == 0
}

// Report summarises a run
type Report struct {
	Suite   string       `json:"suite"`
	Results []StepResult `json:"results"`
}

// Passed reports whether every step passed
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the number of failed steps
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed() {
			n++
		}
	}
	return n
}

// Chatter runs one user message against the assistant
type Chatter interface {
	Chat(ctx context.Context, msg string, history conversation.History, email string) (string, conversation.History, error)
}

// LoadSuite loads a scenario from a YAML file
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, err
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

// Builtin returns the scenario shipped with the binary
func Builtin() (*Suite, error) {
	data, err := builtinFS.ReadFile("scenarios/" + BuiltinName + ".yaml")
	if err != nil {
		return nil, errors.Wrap(err, "read builtin scenario")
	}
	return ParseSuite(data)
}

// ParseSuite decodes and validates a scenario
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, errors.Wrap(err, "parse scenario YAML")
	}
	if len(suite.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	for i, step := range suite.Steps {
		if strings.TrimSpace(step.Message) == "" {
			return nil, errors.Errorf("step %d has no message", i+1)
		}
	}
	return &suite, nil
}

// Run sends every step through one conversation. A failed call keeps the
// previous history and the run continues with the next step. Only context
// cancellation stops a run early.
func Run(ctx context.Context, chat Chatter, suite *Suite, email string) (*Report, error) {
	if email == "" {
		email = suite.UserEmail
	}

	report := &Report{Suite: suite.Name}
	history := conversation.History{}

	for _, step := range suite.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		reply, updated, err := chat.Chat(ctx, step.Message, history, email)
		res := StepResult{Step: step, Reply: reply, Err: err, Duration: time.Since(start)}
		if err == nil {
			history = updated
			res.Failures = check(step, reply)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func check(step Step, reply string) []string {
	lower := strings.ToLower(reply)
	var failures []string
	for _, want := range step.Contains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			failures = append(failures, fmt.Sprintf("reply does not contain %q", want))
		}
	}
	for _, unwanted := range step.NotContains {
		if strings.Contains(lower, strings.ToLower(unwanted)) {
			failures = append(failures, fmt.Sprintf("reply contains %q", unwanted))
		}
	}
	return failures
}
