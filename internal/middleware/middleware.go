// Package middleware wraps cobra command handlers with cross-cutting
// behavior: run IDs, logging and panic recovery.
package middleware

import (
	"context"
	"fmt"
	"time"

	"loki/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunE is the cobra handler signature.
type RunE func(cmd *cobra.Command, args []string) error

type Middleware func(RunE) RunE

// Chain wraps h so that the last middleware runs outermost.
func Chain(h RunE, middlewares ...Middleware) RunE {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// RunID tags the command context with a fresh invocation ID.
func RunID(next RunE) RunE {
	return func(cmd *cobra.Command, args []string) error {
		runID := uuid.New().String()
		cmd.SetContext(logging.ContextWithRunID(commandContext(cmd), runID))
		return next(cmd, args)
	}
}

// Logger logs each command with its outcome and duration at debug level.
func Logger(next RunE) RunE {
	return func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		err := next(cmd, args)

		ctx := commandContext(cmd)
		logger := logging.FromContext(ctx).WithRunID(ctx)
		fields := []zap.Field{
			zap.String("command", cmd.CommandPath()),
			zap.Int("args", len(args)),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Debug("command failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("command completed", fields...)
		}
		return err
	}
}

// Recover turns a panic in the handler into an error.
func Recover(next RunE) RunE {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := commandContext(cmd)
				logging.FromContext(ctx).WithRunID(ctx).Error("panic recovered",
					zap.String("command", cmd.CommandPath()),
					zap.Any("panic", r),
				)
				err = fmt.Errorf("internal error in %s: %v", cmd.Name(), r)
			}
		}()
		return next(cmd, args)
	}
}
