package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thushan/striker/internal/app"
	"github.com/thushan/striker/internal/config"
	"github.com/thushan/striker/internal/environment"
	"github.com/thushan/striker/internal/logger"
	"github.com/thushan/striker/internal/version"
	"github.com/thushan/striker/theme"
)

// session is what PersistentPreRunE sets up for every subcommand
type session struct {
	ctx     *app.Context
	styled  *logger.StyledLogger
	cleanup func()

	configFiles []string
	logLevel    string
	debug       bool
	dryRun      bool
}

// NewRootCommand builds the striker command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&session{})
}

func newRootCommand(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:           version.Name,
		Short:         version.Description,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringArrayVar(&s.configFiles, "config", nil, "config file, directory or glob; repeat to layer (default: ./striker.yaml or $STRIKER_CONFIG_FILE)")
	flags.StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&s.debug, "debug", false, "enable debug mode (implies --log-level debug)")
	flags.BoolVar(&s.dryRun, "dry-run", false, "log commands instead of running them")

	root.AddCommand(
		newCanonicalizeCommand(s),
		newBoolCommand(s),
		newBackoffCommand(s),
		newRunCommand(s),
		newVenvCommand(s),
		newConfigCommand(s),
		newVersionCommand(),
	)

	return root
}

func (s *session) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configFiles...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = s.logLevel
	}
	if flags.Changed("debug") {
		cfg.Debug = s.debug
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = s.dryRun
	}
	if cfg.Debug {
		cfg.Logging.Level = logger.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, styled, cleanup, err := logger.NewWithTheme(&logger.Config{
		Output:     cmd.ErrOrStderr(),
		Level:      cfg.Logging.Level,
		LogDir:     cfg.Logging.LogDir,
		Theme:      cfg.Logging.Theme,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		FileOutput: cfg.Logging.FileOutput,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}
	slog.SetDefault(log)

	s.styled = styled
	s.cleanup = cleanup
	s.ctx = app.NewContext(cfg.Workspace, cfg, log,
		app.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)

	for _, file := range cfg.Files {
		styled.Debug("Loaded configuration", "file", file)
	}
	return nil
}

// close releases the log file; cobra skips PersistentPostRun when RunE fails
func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	s := &session{}
	root := newRootCommand(s)
	root.SetArgs(args)
	return s.execute(ctx, root)
}

func (s *session) execute(ctx context.Context, root *cobra.Command) int {
	defer s.close()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	s.reporter().Error("striker failed", "error", err)
	return ExitCode(err)
}

// reporter falls back to the default logger when setup never got that far
func (s *session) reporter() *logger.StyledLogger {
	if s.styled != nil {
		return s.styled
	}
	return logger.NewStyledLogger(slog.Default(), theme.Default())
}

// ExitCode maps an error to a process exit code; failed commands pass their
// own return code through.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var result *environment.ExecResult
	if errors.As(err, &result) && result.ReturnCode > 0 {
		return result.ReturnCode
	}
	return 1
}

func currentDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
