package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"loki/internal/config"
	"loki/internal/digest"
	"loki/internal/errors"
	"loki/internal/history"
	"loki/internal/logging"
	"loki/internal/repo"
	"loki/internal/watch"
	"loki/internal/workspace"

	"github.com/spf13/cobra"
)

func (a *app) initCmd() *cobra.Command {
	var hash string
	var compression bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository or reinitialize an existing one",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&hash, "hash", string(digest.DefaultAlgorithm), "digest algorithm for new repositories (sha1, xxh3)")
	cmd.Flags().BoolVar(&compression, "compression", false, "store large objects zstd-compressed")

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		root := a.repoPath
		if root == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.IO("getting current directory", err)
			}
			root = cwd
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("getting absolute path for %s: %w", root, err)
		}

		cfg := config.Default()
		cfg.Core.Hash = digest.Algorithm(hash)
		cfg.Core.Compression = compression

		created, err := repo.Init(root, cfg)
		if err != nil {
			return err
		}

		dir := filepath.Join(root, workspace.DirName)
		if created {
			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty Loki repository in", dir)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Reinitialized existing Loki repository in", dir)
		}
		return nil
	})
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Store files and stage them for the next commit",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.IO("getting current directory", err)
		}

		return a.withRepo(cmd, func(r *repo.Repository) error {
			for _, arg := range args {
				rel, err := workspace.RelPath(r.Root(), cwd, arg)
				if err != nil {
					return err
				}
				hash, err := r.Add(rel)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
			}
			return nil
		})
	})
	return cmd
}

func (a *app) commitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <message>",
		Short: "Record the staged files as a new commit",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		return a.withRepo(cmd, func(r *repo.Repository) error {
			hash, err := r.Commit(message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		})
	})
	return cmd
}

func (a *app) logCmd() *cobra.Command {
	var oneline bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the commit history, most recent first",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&oneline, "oneline", false, "print each commit on a single line")

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.withRepo(cmd, func(r *repo.Repository) error {
			w, err := r.Log()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for w.Next() {
				if oneline {
					printCommitLine(out, w.Entry())
				} else {
					printCommit(out, w.Entry())
				}
			}
			return w.Err()
		})
	})
	return cmd
}

func (a *app) diffCmd() *cobra.Command {
	var unified bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show what the last commit changed relative to its parent",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "print unified patches")

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.withRepo(cmd, func(r *repo.Repository) error {
			report, err := r.Diff()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			changed := report.Changed()
			if len(changed) == 0 {
				fmt.Fprintln(out, "No changes")
				return nil
			}

			for _, f := range changed {
				if !unified {
					printFileDiff(out, f)
					continue
				}
				patch, err := r.Unified(f)
				if err != nil {
					return err
				}
				printPatch(out, patch)
			}
			return nil
		})
	})
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show HEAD and the files staged for the next commit",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.withRepo(cmd, func(r *repo.Repository) error {
			head, err := r.Head()
			if err != nil {
				return err
			}
			staged, err := r.Staged()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), head, staged)
			return nil
		})
	})
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <digest>",
		Short: "Print a stored object",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.withRepo(cmd, func(r *repo.Repository) error {
			obj, err := r.Show(digest.Digest(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if obj.Commit == nil {
				_, err := out.Write(obj.Content)
				return err
			}
			printCommit(out, history.Entry{Digest: obj.Meta.Hash, Commit: obj.Commit})
			printFiles(out, obj.Commit.Files)
			return nil
		})
	})
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that history and stored objects are intact",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.withRepo(cmd, func(r *repo.Repository) error {
			report, err := r.Verify()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d commits, %d blobs, %d unreachable objects\n",
				report.Commits, report.Blobs, report.Unreached)
			return nil
		})
	})
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Stage files again every time they are saved",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.IO("getting current directory", err)
		}

		return a.withRepo(cmd, func(r *repo.Repository) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				rel, err := workspace.RelPath(r.Root(), cwd, arg)
				if err != nil {
					return err
				}
				paths = append(paths, rel)
			}

			out := cmd.OutOrStdout()
			w, err := watch.New(r.Root(), paths, r.Add,
				watch.WithLogger(logging.FromContext(cmd.Context()).WithRunID(cmd.Context())),
				watch.WithNotify(func(path string, hash digest.Digest) {
					printStaged(out, path, hash)
				}),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Watching %d file(s), press Ctrl+C to stop\n", len(paths))
			return w.Run(ctx)
		})
	})
	return cmd
}
