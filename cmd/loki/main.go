// cmd/loki/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"loki/internal/config"
	"loki/internal/errors"
	"loki/internal/logging"
	"loki/internal/middleware"
	"loki/internal/repo"
	"loki/internal/workspace"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type app struct {
	repoPath string
	logger   *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "loki",
		Short: "Loki is a minimal content-addressed version control system",
		Long: `Loki stores file snapshots as content-addressed objects, records them
in a linear chain of commits and shows line diffs between the last two.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.repoPath, "repo", "", "repository root (default: search upward from the current directory)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.ValidationError(err.Error(), nil)
	})

	rootCmd.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.commitCmd(),
		a.logCmd(),
		a.diffCmd(),
		a.statusCmd(),
		a.showCmd(),
		a.verifyCmd(),
		a.watchCmd(),
	)
	return rootCmd
}

// setup builds the logger at the level configured for the repository, or
// the default level when there is none yet.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := config.Default().LogLevel
	if root, err := a.root(); err == nil {
		if cfg, err := config.Load(repo.ConfigPath(root)); err == nil {
			level = cfg.LogLevel
			color.NoColor = color.NoColor || !cfg.Diff.Color
		}
	}

	logger, err := logging.NewLogger(level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.ContextWithLogger(ctx, logger))
	return nil
}

// run wraps a handler with the standard middleware chain.
func (a *app) run(h middleware.RunE) middleware.RunE {
	return middleware.Chain(h,
		middleware.RunID,
		middleware.Logger,
		middleware.Recover,
	)
}

// root returns the repository root: --repo when given, otherwise the
// nearest directory holding .loki.
func (a *app) root() (string, error) {
	if a.repoPath != "" {
		return filepath.Abs(a.repoPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.IO("getting current directory", err)
	}
	return workspace.FindRoot(cwd)
}

// withRepo opens the repository for the duration of fn.
func (a *app) withRepo(cmd *cobra.Command, fn func(r *repo.Repository) error) (err error) {
	root, err := a.root()
	if err != nil {
		return err
	}

	logger := logging.FromContext(cmd.Context()).WithRunID(cmd.Context())
	r, err := repo.Open(root, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(r)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}
