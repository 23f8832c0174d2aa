package assets

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// EventKind classifies a filesystem change, independent of fsnotify's
// own bitmask so the rest of the package doesn't import it directly.
type EventKind int

const (
	EventWrite EventKind = iota
	EventCreate
	EventRemove
	EventRename
)

// Event is a single filesystem change, path-tagged per spec.md §6
// ("the watcher delivers change events... carrying the changed path").
type Event struct {
	Path string
	Kind EventKind
}

// Notifier is the filesystem-watcher contract spec.md §6 treats as an
// external collaborator, narrowed to what the Hot-Reload Coordinator
// needs: add a watch, receive events/errors, close. FsnotifyNotifier is
// the concrete implementation; tests substitute a channel-backed fake.
type Notifier interface {
	Add(path string) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// FsnotifyNotifier adapts fsnotify.Watcher to Notifier, grounded on the
// teacher's assets.go watcher integration.
type FsnotifyNotifier struct {
	fsw    *fsnotify.Watcher
	events chan Event
	errors chan error
	done   chan struct{}
}

func NewFsnotifyNotifier() (*FsnotifyNotifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &FsnotifyNotifier{
		fsw:    fsw,
		events: make(chan Event),
		errors: make(chan error),
		done:   make(chan struct{}),
	}
	go n.pump()
	return n, nil
}

func (n *FsnotifyNotifier) pump() {
	for {
		select {
		case ev, ok := <-n.fsw.Events:
			if !ok {
				close(n.events)
				return
			}
			kind := EventWrite
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = EventCreate
			case ev.Op&fsnotify.Remove != 0:
				kind = EventRemove
			case ev.Op&fsnotify.Rename != 0:
				kind = EventRename
			}
			select {
			case n.events <- Event{Path: ev.Name, Kind: kind}:
			case <-n.done:
				return
			}
		case err, ok := <-n.fsw.Errors:
			if !ok {
				close(n.errors)
				return
			}
			select {
			case n.errors <- err:
			case <-n.done:
				return
			}
		case <-n.done:
			return
		}
	}
}

func (n *FsnotifyNotifier) Add(path string) error { return n.fsw.Add(path) }
func (n *FsnotifyNotifier) Events() <-chan Event  { return n.events }
func (n *FsnotifyNotifier) Errors() <-chan error  { return n.errors }
func (n *FsnotifyNotifier) Close() error {
	close(n.done)
	return n.fsw.Close()
}

// Watcher bridges a Notifier to the thread pool: every delivered event
// becomes a work item submitted to subsystem, matching spec.md §6's
// "the watcher delivers change events by enqueueing a work item into
// the thread pool".
type Watcher struct {
	notifier  Notifier
	pool      threadpool.Pool
	subsystem string

	stopOnce sync.Once
	stop     chan struct{}
}

func NewWatcher(notifier Notifier, pool threadpool.Pool, subsystem string) *Watcher {
	return &Watcher{notifier: notifier, pool: pool, subsystem: subsystem, stop: make(chan struct{})}
}

func (w *Watcher) AddPath(path string) error {
	return w.notifier.Add(path)
}

// Start begins dispatching events to onEvent on pool workers. onEvent
// runs on whatever worker goroutine drains the submitted item, never on
// the watcher's own pump goroutine.
func (w *Watcher) Start(onEvent func(path string)) {
	go func() {
		for {
			select {
			case ev, ok := <-w.notifier.Events():
				if !ok {
					return
				}
				if ev.Kind != EventWrite && ev.Kind != EventCreate {
					continue
				}
				path := ev.Path
				if err := w.pool.Submit(w.subsystem, threadpool.WorkItem{
					Kind:     threadpool.WorkKindHotReload,
					Priority: threadpool.PriorityNormal,
					Payload:  path,
					Run: func(payload interface{}) error {
						onEvent(payload.(string))
						return nil
					},
				}); err != nil {
					core.LogError("watcher: submit for %q: %v", path, err)
				}
			case err, ok := <-w.notifier.Errors():
				if !ok {
					continue
				}
				core.LogError("watcher: %v", err)
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	return w.notifier.Close()
}
