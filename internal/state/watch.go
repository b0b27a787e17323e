package state

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchExternalChanges watches the state file's directory and invokes
// onChange whenever the file itself is written, replaced, renamed or
// removed — e.g. an operator hand-editing or deleting the cursor file to
// force a re-bootstrap against a target. Writes made by this Store's own
// Put fire onChange as well; no source is distinguished. It does not
// reload the in-memory map itself; callers decide whether to call Reload.
func (s *Store) WatchExternalChanges(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange()
				}
			case <-watcher.Errors:
				// Ignore: a missed fsnotify event is at worst a stale
				// in-memory view until the next successful cycle persists it.
			}
		}
	}()

	return nil
}
