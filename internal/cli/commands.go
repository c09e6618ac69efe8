package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thushan/striker/internal/environment"
	"github.com/thushan/striker/internal/logger"
	"github.com/thushan/striker/internal/version"
)

type runFlags struct {
	cwd           string
	retryOn       []int
	retryOnOutput []string
	tries         int
	capture       bool
	noRaise       bool
}

func newRunCommand(s *session) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARG...]",
		Short: "Run a command in the striker environment, optionally retrying it",
		Long: `Run a command with the configured environment overrides.

Retries are enabled by --retry-on, --retry-on-output or an explicit --tries.
The first try is immediate; later ones back off exponentially.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.ctx.DryRun {
				s.styled.InfoWithCommand("Dry run, not executing", environment.FormatCommand(args))
				return nil
			}

			env, err := s.ctx.Environ()
			if err != nil {
				return err
			}

			opts := f.options(cmd, s.ctx.Config.Retry.MaxTries)
			result, err := env.Run(cmd.Context(), args, opts...)
			if result != nil {
				reportResult(s.styled, result, f.noRaise)
				// retrying captures even without --capture
				_, _ = cmd.OutOrStdout().Write(result.Stdout)
				_, _ = cmd.ErrOrStderr().Write(result.Stderr)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.cwd, "cwd", "", "directory to run in, relative to the workspace")
	flags.BoolVar(&f.capture, "capture", false, "capture output and print it when the command finishes")
	flags.BoolVar(&f.noRaise, "no-raise", false, "exit zero even when the command fails")
	flags.IntVar(&f.tries, "tries", 0, "maximum tries when retrying (default from config)")
	flags.IntSliceVar(&f.retryOn, "retry-on", nil, "retry when the command exits with one of these codes")
	flags.StringSliceVar(&f.retryOnOutput, "retry-on-output", nil, "retry when an output line matches one of these globs")
	return cmd
}

func (f *runFlags) options(cmd *cobra.Command, defaultTries int) []environment.RunOption {
	var opts []environment.RunOption
	if f.cwd != "" {
		opts = append(opts, environment.InDir(f.cwd))
	}
	if f.capture {
		opts = append(opts, environment.CaptureOutput())
	}
	if f.noRaise {
		opts = append(opts, environment.NoRaise())
	}

	triesSet := cmd.Flags().Changed("tries")
	var predicates []environment.RetryFunc
	if len(f.retryOn) > 0 {
		predicates = append(predicates, environment.RetryOnReturnCodes(f.retryOn...))
	}
	if len(f.retryOnOutput) > 0 {
		predicates = append(predicates, environment.RetryOnOutput(f.retryOnOutput...))
	}
	if len(predicates) == 0 && triesSet {
		predicates = append(predicates, environment.RetryOnReturnCodes())
	}
	if len(predicates) == 0 {
		return opts
	}

	tries := defaultTries
	if triesSet {
		tries = f.tries
	}
	opts = append(opts,
		environment.MaxTries(tries),
		environment.RetryIf(func(r *environment.ExecResult) bool {
			for _, p := range predicates {
				if p(r) {
					return true
				}
			}
			return false
		}),
	)
	return opts
}

func reportResult(styled *logger.StyledLogger, result *environment.ExecResult, tolerated bool) {
	lc := logger.LogContext{
		UserArgs: []any{"code", result.ReturnCode, "id", result.ID.String()},
	}
	if len(result.Stdout) > 0 || len(result.Stderr) > 0 {
		lc.DetailedArgs = []any{"stdout", string(result.Stdout), "stderr", string(result.Stderr)}
	}

	switch {
	case result.Success():
		styled.InfoWithContext("Command finished", result.CmdText, lc)
	case tolerated:
		styled.WarnWithContext("Command failed", result.CmdText, lc)
	default:
		styled.ErrorWithContext("Command failed", result.CmdText, lc)
	}
}

func newVenvCommand(s *session) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "venv [--rebuild] PATH",
		Short: "Create (or reuse) a Python virtualenv and print its location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.ctx.Environ()
			if err != nil {
				return err
			}

			if s.ctx.DryRun {
				s.styled.InfoWithPath("Dry run, not creating virtual environment", args[0], "rebuild", rebuild)
				return nil
			}

			venv, err := env.CreateVirtualEnv(cmd.Context(), args[0], rebuild, nil)
			if err != nil {
				return err
			}

			s.styled.InfoWithPath("Virtual environment ready", venv.VenvHome())
			fmt.Fprintln(cmd.OutOrStdout(), venv.VenvHome())
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "remove and recreate an existing virtualenv")
	return cmd
}

func newConfigCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s.ctx.Config); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newVersionCommand() *cobra.Command {
	var extended bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version banner",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersionInfo(extended, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&extended, "extended", "e", false, "include build details")
	return cmd
}
