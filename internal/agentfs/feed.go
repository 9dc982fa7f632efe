// Package agentfs feeds an agent from a directory of record files.
//
// The directory holds one subdirectory per kind (connections/, credentials/, proofs/) and one
// record per .json, .yml, .yaml or .toml file. Writing a file saves or updates its record;
// removing it deletes the record.
package agentfs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/logging"
	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Feed.
type Options struct {
	Dir      string
	Ignore   []string
	Debounce time.Duration
	Logger   *logrus.Entry
}

type recordRef struct {
	kind records.Type
	id   string
}

// Feed keeps an agent in sync with a records directory.
type Feed struct {
	agent    *agent.Agent
	dir      string
	matcher  *patternmatcher.PatternMatcher
	debounce time.Duration
	logger   *logrus.Entry

	mu     sync.Mutex
	known  map[string]recordRef
	timers map[string]*time.Timer
}

// New creates a Feed writing into a.
func New(a *agent.Agent, opts Options) (*Feed, error) {
	if opts.Dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "records directory is not set")
	}
	matcher, err := patternmatcher.New(opts.Ignore)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid records.ignore pattern")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("agentfs")
	}

	return &Feed{
		agent:    a,
		dir:      opts.Dir,
		matcher:  matcher,
		debounce: opts.Debounce,
		logger:   opts.Logger.WithField("dir", opts.Dir),
		known:    make(map[string]recordRef),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Name implements the daemon engine Worker interface.
func (f *Feed) Name() string {
	return "agentfs"
}

// Dir returns the records directory.
func (f *Feed) Dir() string {
	return f.dir
}

// Load creates the kind directories if needed and puts every record file into the agent.
// Files that cannot be read or decoded are logged and skipped.
func (f *Feed) Load(ctx context.Context) error {
	for _, t := range records.Types {
		kindDir := filepath.Join(f.dir, t.Kind())
		if err := os.MkdirAll(kindDir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create records directory").
				WithDetail("path", kindDir)
		}

		entries, err := os.ReadDir(kindDir)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to read records directory").
				WithDetail("path", kindDir)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if entry.IsDir() {
				continue
			}
			f.reload(filepath.Join(kindDir, entry.Name()))
		}
	}

	f.logger.WithField("files", f.knownCount()).Info("Loaded records directory")
	return nil
}

// Run watches the records directory until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	defer watcher.Close()

	for _, t := range records.Types {
		kindDir := filepath.Join(f.dir, t.Kind())
		if err := os.MkdirAll(kindDir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create records directory").
				WithDetail("path", kindDir)
		}
		if err := watcher.Add(kindDir); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to watch records directory").
				WithDetail("path", kindDir)
		}
	}
	f.logger.Debug("Watching records directory")

	defer f.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			f.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				f.schedule(ctx, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				f.cancel(event.Name)
				f.forget(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.WithError(err).Error("Watcher error")
		}
	}
}

// schedule reloads path once it has been quiet for the debounce interval.
func (f *Feed) schedule(ctx context.Context, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.timers[path]; ok {
		t.Stop()
	}
	f.timers[path] = time.AfterFunc(f.debounce, func() {
		f.mu.Lock()
		delete(f.timers, path)
		f.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		f.reload(path)
	})
}

func (f *Feed) cancel(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.timers[path]; ok {
		t.Stop()
		delete(f.timers, path)
	}
}

func (f *Feed) stopTimers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, t := range f.timers {
		t.Stop()
		delete(f.timers, path)
	}
}

// reload reads path and puts its record. A file that vanished is treated as removed.
func (f *Feed) reload(path string) {
	kind, ok := f.kindFor(path)
	if !ok || !IsRecordFile(path) || f.ignored(path) {
		return
	}

	rec, err := ReadRecord(kind, path)
	if err != nil {
		if os.IsNotExist(err) {
			f.forget(path)
			return
		}
		f.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable record file")
		return
	}

	f.mu.Lock()
	prev, hadPrev := f.known[path]
	f.known[path] = recordRef{kind: kind, id: rec.RecordID()}
	f.mu.Unlock()

	// The file now names a different record; the old one goes away.
	if hadPrev && prev.id != rec.RecordID() {
		f.delete(prev)
	}

	if err := f.agent.Put(rec); err != nil {
		f.logger.WithError(err).WithField("path", path).Warn("Failed to store record")
		return
	}
	f.logger.WithFields(logrus.Fields{
		"kind": kind.Kind(),
		"id":   rec.RecordID(),
	}).Debug("Record stored")
}

// forget deletes the record last read from path.
func (f *Feed) forget(path string) {
	f.mu.Lock()
	ref, ok := f.known[path]
	delete(f.known, path)
	f.mu.Unlock()

	if ok {
		f.delete(ref)
	}
}

func (f *Feed) delete(ref recordRef) {
	err := f.agent.Delete(ref.kind, ref.id)
	if err != nil && !errors.Is(err, errors.ErrCodeRecordNotFound) {
		f.logger.WithError(err).WithField("id", ref.id).Warn("Failed to delete record")
		return
	}
	f.logger.WithFields(logrus.Fields{
		"kind": ref.kind.Kind(),
		"id":   ref.id,
	}).Debug("Record deleted")
}

// kindFor maps <dir>/<kind>/<file> to the record type of <kind>.
func (f *Feed) kindFor(path string) (records.Type, bool) {
	rel, err := filepath.Rel(f.dir, path)
	if err != nil {
		return "", false
	}
	kindDir, file := filepath.Split(rel)
	if file == "" || filepath.Dir(filepath.Clean(kindDir)) != "." {
		return "", false
	}
	for _, t := range records.Types {
		if filepath.Clean(kindDir) == t.Kind() {
			return t, true
		}
	}
	return "", false
}

// ignored matches the ignore patterns against the path relative to the records directory and
// against the bare file name.
func (f *Feed) ignored(path string) bool {
	rel, err := filepath.Rel(f.dir, path)
	if err != nil {
		return false
	}
	for _, candidate := range []string{rel, filepath.Base(rel)} {
		matched, err := f.matcher.MatchesOrParentMatches(candidate)
		if err != nil {
			f.logger.WithError(err).WithField("path", path).Warn("Ignore pattern match failed")
			return false
		}
		if matched {
			return true
		}
	}
	return false
}

func (f *Feed) knownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.known)
}
