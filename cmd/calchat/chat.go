package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/soypete/calchat/pkg/repl"
	"github.com/soypete/calchat/pkg/scenario"
)

func chatCmd() *cobra.Command {
	var (
		remote string
		email  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Long: `Start an interactive chat session.

By default the assistant runs in-process. With --remote the session talks
to a running "calchat serve" instead.

Examples:
  calchat chat --email ann@example.com
  calchat chat --remote http://localhost:8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			chat, release, err := chatter(ctx, cmd, remote)
			if err != nil {
				return err
			}
			defer release()

			input, err := repl.NewInputHandler("You: ")
			if err != nil {
				return err
			}

			var opts []repl.Option
			if isatty.IsTerminal(os.Stdout.Fd()) {
				opts = append(opts, repl.WithSpinner())
			}
			return repl.NewREPL(chat, repl.NewSession(email), input, os.Stdout, opts...).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "URL of a running calchat server")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Your email, used to look up your bookings")
	return cmd
}

func askCmd() *cobra.Command {
	var (
		remote string
		email  string
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask a single question",
		Long: `Send one message with no prior history and print the reply.

Example:
  calchat ask --email ann@example.com "What meetings do I have this week?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			chat, release, err := chatter(ctx, cmd, remote)
			if err != nil {
				return err
			}
			defer release()

			reply, _, err := chat.Chat(ctx, strings.Join(args, " "), nil, email)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "URL of a running calchat server")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Your email, used to look up your bookings")
	return cmd
}

func scriptCmd() *cobra.Command {
	var (
		remote  string
		email   string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "script [scenario.yaml]",
		Short: "Run a scripted conversation",
		Long: `Run every step of a scenario through one conversation and check the replies.

Without a file the built-in walkthrough runs. It books, lists, cancels and
reschedules real meetings, so point it at a test calendar.

Scenario format:
  name: smoke
  user_email: ann@example.com
  steps:
    - message: What times are free on 2026-01-19?
      contains: ["UTC"]
      not_contains: ["error"]`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				suite *scenario.Suite
				err   error
			)
			if len(args) == 1 {
				suite, err = scenario.LoadSuite(args[0])
			} else {
				suite, err = scenario.Builtin()
			}
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			chat, release, err := chatter(ctx, cmd, remote)
			if err != nil {
				return err
			}
			defer release()

			report, err := scenario.Run(ctx, chat, suite, email)
			scenario.NewConsoleReporter(os.Stdout, verbose).Report(report)
			if err != nil {
				return err
			}
			if !report.Passed() {
				return fmt.Errorf("%d of %d steps failed", report.Failed(), len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "URL of a running calchat server")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Override the scenario's user email")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", true, "Print every message and reply")
	return cmd
}
