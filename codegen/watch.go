package codegen

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// watchDebounce is how long Watch waits after the last source change before regenerating.
const watchDebounce = 200 * time.Millisecond

// Watch generates the harnesses of the packages matched by patterns, then regenerates them whenever a Go source file
// in one of the package directories changes, until ctx is cancelled. onGenerate is called with the outcome of every
// generation. Changes to harness files themselves do not trigger a generation.
func (g *Generator) Watch(ctx context.Context, patterns []string, onGenerate func([]*Result, error)) error {
	dirs, err := ExpandPatterns(patterns, g.config.ExcludeDirs)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	defer watcher.Close()
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}
	codegenLogger.Info("Watching ", len(dirs), " package directories for changes")

	onGenerate(g.Generate(ctx, patterns...))

	// The timer is only armed after a relevant event
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !g.isSourceEvent(event) {
				continue
			}
			codegenLogger.Debug("Source change detected: ", event.Name)
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			codegenLogger.Warn("File watcher reported an error", err)
		case <-timer.C:
			onGenerate(g.Generate(ctx, patterns...))
		}
	}
}

// isSourceEvent reports whether an event changes a Go source file that is not a generated harness.
func (g *Generator) isSourceEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, g.config.OutputSuffix) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
