package scenario

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ConsoleReporter prints a run step by step
type ConsoleReporter struct {
	out     io.Writer
	verbose bool
}

// NewConsoleReporter creates a reporter. Verbose prints full replies.
func NewConsoleReporter(out io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, verbose: verbose}
}

// Report writes the run to the reporter's writer
func (r *ConsoleReporter) Report(report *Report) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Scenario: %s\n", report.Suite)
	fmt.Fprintln(r.out, rule)

	for i, res := range report.Results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
		}
		name := res.Step.Name
		if name == "" {
			name = res.Step.Message
		}
		fmt.Fprintf(r.out, "[%s] %d. %s (%s)\n", status, i+1, name, res.Duration.Round(time.Millisecond))

		if r.verbose {
			fmt.Fprintf(r.out, "    User: %s\n", res.Step.Message)
			if res.Err == nil {
				fmt.Fprintf(r.out, "    Bot:  %s\n", res.Reply)
			}
		}
		if res.Err != nil {
			fmt.Fprintf(r.out, "    error: %v\n", res.Err)
		}
		for _, f := range res.Failures {
			fmt.Fprintf(r.out, "    %s\n", f)
		}
	}

	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "%d/%d steps passed\n", len(report.Results)-report.Failed(), len(report.Results))
}
