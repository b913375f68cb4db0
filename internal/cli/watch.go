package cli

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/aretw0/dynamo/pkg/adapters/file"
	"github.com/aretw0/dynamo/pkg/commands"
)

// Watch runs the workspace at opts.Path, then runs it again every time the
// document changes. With definitions.watch set, changed custom node
// documents are reloaded and the workspace re-run as well. It returns when
// ctx is done.
func Watch(ctx context.Context, w io.Writer, opts RunOptions) error {
	wb, closeStore, err := NewWorkbench(opts.Options)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	logger := wb.Logger()

	ctx, cancel := context.WithCancel(ctx)
	owner, wait := StartOwner(ctx, commands.New(wb))
	defer wait()
	defer cancel()

	iterate := func(reopen bool) {
		err := owner.Do(ctx, func() error {
			if reopen {
				return runOnce(ctx, wb, w, opts)
			}
			return rerun(ctx, wb, w, nil, opts)
		})
		switch {
		case errors.Is(err, ErrRunFailed):
			logger.Warn("run finished with errors", "err", err)
		case err != nil && ctx.Err() == nil:
			logger.Error("run failed", "err", err)
		}
		if ctx.Err() == nil {
			printSystemMessage(w, "Waiting for changes...")
		}
	}

	if err := owner.Do(ctx, func() error {
		_, err := wb.LoadDefinitions(ctx)
		return err
	}); err != nil {
		logger.Warn("could not load custom nodes", "err", err)
	}

	dir, name := filepath.Split(opts.Path)
	if dir == "" {
		dir = "."
	}
	changes, err := file.NewWatcher(file.New(dir), file.WithWatchLogger(logger)).Watch(ctx)
	if err != nil {
		return err
	}

	defsChanged := make(chan struct{}, 1)
	if opts.Config != nil && opts.Config.Definitions.Watch {
		go func() {
			err := wb.WatchDefinitions(ctx, func(fn func()) {
				owner.Post(fn)
				select {
				case defsChanged <- struct{}{}:
				default:
				}
			})
			if err != nil {
				logger.Error("definition watcher stopped", "err", err)
			}
		}()
	}

	iterate(true)
	for {
		select {
		case <-ctx.Done():
			return nil
		case changed, ok := <-changes:
			if !ok {
				return nil
			}
			if changed != name {
				continue
			}
			printSystemMessage(w, "Change detected in '%s'.", changed)
			iterate(true)
		case <-defsChanged:
			printSystemMessage(w, "Custom nodes reloaded.")
			iterate(false)
		}
	}
}
