package builder

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/platform"
)

// TaskConfig is the configuration of one task pipeline. It is built once
// per task and never changes afterwards; it carries no scheduling options
// so a pipeline cannot fan out again.
type TaskConfig struct {
	task           platform.Task
	projectDir     string
	manifest       *config.Manifest
	runtimeVersion string
}

// NewTaskConfig returns the configuration of one task.
func NewTaskConfig(task platform.Task, projectDir string, manifest *config.Manifest, runtimeVersion string) TaskConfig {
	return TaskConfig{
		task:           task,
		projectDir:     projectDir,
		manifest:       manifest,
		runtimeVersion: runtimeVersion,
	}
}

// Task returns the platform and architecture pair.
func (c TaskConfig) Task() platform.Task {
	return c.task
}

// TaskFunc runs the pipeline of one task.
type TaskFunc func(ctx context.Context, cfg TaskConfig) error

// Strategy schedules task pipelines.
type Strategy func(ctx context.Context, configs []TaskConfig, run TaskFunc) error

// Sequential runs tasks in order and stops at the first failure.
func Sequential(ctx context.Context, configs []TaskConfig, run TaskFunc) error {
	for _, cfg := range configs {
		if err := run(ctx, cfg); err != nil {
			return fmt.Errorf("%s: %w", cfg.task, err)
		}
	}

	return nil
}

// Concurrent runs every task in its own goroutine, at most limit at a time
// when limit is positive. A failing task does not stop its siblings; all
// failures are combined.
func Concurrent(limit int) Strategy {
	return func(ctx context.Context, configs []TaskConfig, run TaskFunc) error {
		var group errgroup.Group
		if limit > 0 {
			group.SetLimit(limit)
		}

		errs := make([]error, len(configs))

		for i, cfg := range configs {
			group.Go(func() error {
				if err := run(ctx, cfg); err != nil {
					errs[i] = fmt.Errorf("%s: %w", cfg.task, err)
				}

				return nil
			})
		}

		_ = group.Wait()

		return multierr.Combine(errs...)
	}
}
