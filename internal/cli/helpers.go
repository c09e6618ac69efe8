package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/thushan/striker/internal/util"
	"github.com/thushan/striker/pkg/format"
)

func newCanonicalizeCommand(s *session) *cobra.Command {
	var cwd string

	cmd := &cobra.Command{
		Use:   "canonicalize [--cwd DIR] PATH...",
		Short: "Print the absolute, normalised form of each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := cwd
			if base == "" {
				base = currentDir()
			}

			for _, p := range args {
				canonical := util.CanonicalizePath(base, p)
				s.styled.Debug("Canonicalised path", "path", p, "canonical", canonical)
				fmt.Fprintln(cmd.OutOrStdout(), canonical)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", "", "directory relative paths are resolved against (default: current directory)")
	return cmd
}

func newBoolCommand(s *session) *cobra.Command {
	var fallback string

	cmd := &cobra.Command{
		Use:   "bool [--default true|false] VALUE",
		Short: "Interpret a loosely written boolean (yes/no, on/off, 1/0...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def := util.NoDefault
			if cmd.Flags().Changed("default") {
				b, err := util.ParseBool(fallback, util.NoDefault)
				if err != nil {
					return fmt.Errorf("--default: %w", err)
				}
				def = util.DefaultTo(b)
			}

			b, err := util.ParseBool(args[0], def)
			if err != nil {
				return err
			}

			s.styled.Debug("Parsed boolean", "value", args[0], "result", b)
			fmt.Fprintln(cmd.OutOrStdout(), b)
			return nil
		},
	}

	cmd.Flags().StringVar(&fallback, "default", "", "value to use when VALUE is not recognised")
	return cmd
}

// upper bound on the printed schedule
const maxScheduleTries = 1000

func newBackoffCommand(s *session) *cobra.Command {
	var (
		tries        int
		initialDelay time.Duration
		maxDelay     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "backoff [--tries N] [--initial-delay D] [--max-delay D]",
		Short: "Print the retry schedule without sleeping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			retry := s.ctx.Config.Retry
			flags := cmd.Flags()
			if !flags.Changed("tries") {
				tries = retry.MaxTries
			}
			if !flags.Changed("initial-delay") {
				initialDelay = retry.InitialDelay
			}
			if !flags.Changed("max-delay") {
				maxDelay = retry.MaxDelay
			}
			if tries > maxScheduleTries {
				return fmt.Errorf("--tries %d: schedules are limited to %d tries", tries, maxScheduleTries)
			}

			delays := util.BackoffSchedule(tries,
				util.WithInitialDelay(initialDelay),
				util.WithMaxDelay(maxDelay),
			)

			out := cmd.OutOrStdout()
			if tries > 0 {
				fmt.Fprintf(out, "try %d: immediately\n", 1)
			}

			var total time.Duration
			for i, d := range delays {
				total = addSaturating(total, d)
				fmt.Fprintf(out, "try %d: after %s (total %s, %s)\n",
					i+2, format.Duration(d), format.Duration(total), units.HumanDuration(total))
			}

			s.styled.InfoWithCount("Backoff schedule", tries, "delays", format.Durations(delays))
			s.styled.InfoWithDelay("Total wait", total)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&tries, "tries", 0, "number of tries (default from config)")
	flags.DurationVar(&initialDelay, "initial-delay", 0, "wait before the second try (default from config)")
	flags.DurationVar(&maxDelay, "max-delay", 0, "cap on any single wait, 0 for none (default from config)")
	return cmd
}

func addSaturating(a, b time.Duration) time.Duration {
	if a > 0 && b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
