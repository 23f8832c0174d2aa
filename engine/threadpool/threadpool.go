package threadpool

import (
	"fmt"
	"sync"

	"github.com/Kinubi/zephyr-assets/engine/containers"
	"github.com/Kinubi/zephyr-assets/engine/core"
)

// Pool is the external "thread pool" contract from spec.md §6: named
// subsystems with independent worker budgets, priority-ordered submission,
// and a guarantee that submitted items are never dropped.
type Pool interface {
	RegisterSubsystem(name string, workKind WorkKind, minWorkers, maxWorkers int, defaultPriority Priority) error
	RequestWorkers(subsystem string, n int) (int, error)
	Submit(subsystem string, item WorkItem) error
	Shutdown()
}

type subsystem struct {
	name            string
	workKind        WorkKind
	min, max        int
	defaultPriority Priority

	mu           sync.Mutex
	cond         *sync.Cond
	queues       [numPriorities]*containers.RingQueue[WorkItem]
	running      int
	shuttingDown bool
	wg           sync.WaitGroup
}

// ThreadPool is the concrete Pool implementation. It owns no knowledge of
// asset semantics: callers submit tagged, self-contained WorkItems.
type ThreadPool struct {
	mu         sync.RWMutex
	subsystems map[string]*subsystem
}

func New() *ThreadPool {
	return &ThreadPool{
		subsystems: make(map[string]*subsystem),
	}
}

func (tp *ThreadPool) RegisterSubsystem(name string, workKind WorkKind, minWorkers, maxWorkers int, defaultPriority Priority) error {
	if minWorkers < 1 {
		return fmt.Errorf("threadpool: subsystem %q requires at least 1 worker", name)
	}
	if maxWorkers < minWorkers {
		return fmt.Errorf("threadpool: subsystem %q max workers (%d) below min (%d)", name, maxWorkers, minWorkers)
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()
	if _, exists := tp.subsystems[name]; exists {
		return fmt.Errorf("threadpool: subsystem %q already registered", name)
	}

	s := &subsystem{
		name:            name,
		workKind:        workKind,
		min:             minWorkers,
		max:             maxWorkers,
		defaultPriority: defaultPriority,
	}
	s.cond = sync.NewCond(&s.mu)
	for i := range s.queues {
		s.queues[i] = containers.NewRingQueue[WorkItem](8)
	}
	tp.subsystems[name] = s

	s.spawnWorkersLocked(s.min)
	core.LogDebug("threadpool: registered subsystem %q (kind=%s min=%d max=%d)", name, workKind, minWorkers, maxWorkers)
	return nil
}

// RequestWorkers asks a subsystem to have up to n workers available,
// spawning additional goroutines (never beyond max, never shrinking
// below what's already running) and returning the number now running.
func (tp *ThreadPool) RequestWorkers(name string, n int) (int, error) {
	s, err := tp.lookup(name)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.max {
		n = s.max
	}
	if n > s.running {
		s.spawnWorkersLocked(n - s.running)
	}
	return s.running, nil
}

func (tp *ThreadPool) Submit(name string, item WorkItem) error {
	s, err := tp.lookup(name)
	if err != nil {
		return err
	}
	if item.Kind != s.workKind {
		return fmt.Errorf("threadpool: item kind %s does not match subsystem %q kind %s", item.Kind, name, s.workKind)
	}
	if item.Run == nil {
		return fmt.Errorf("threadpool: work item submitted to %q with a nil Run function", name)
	}

	s.mu.Lock()
	s.queues[item.Priority].Enqueue(item)
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

func (tp *ThreadPool) Shutdown() {
	tp.mu.RLock()
	subs := make([]*subsystem, 0, len(tp.subsystems))
	for _, s := range tp.subsystems {
		subs = append(subs, s)
	}
	tp.mu.RUnlock()

	for _, s := range subs {
		s.mu.Lock()
		s.shuttingDown = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}
	for _, s := range subs {
		s.wg.Wait()
	}
}

func (tp *ThreadPool) lookup(name string) (*subsystem, error) {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	s, ok := tp.subsystems[name]
	if !ok {
		return nil, fmt.Errorf("threadpool: unknown subsystem %q", name)
	}
	return s, nil
}

// spawnWorkersLocked must be called with s.mu held.
func (s *subsystem) spawnWorkersLocked(count int) {
	for i := 0; i < count; i++ {
		s.running++
		s.wg.Add(1)
		go s.workerLoop()
	}
}

func (s *subsystem) workerLoop() {
	defer s.wg.Done()

	s.mu.Lock()
	for {
		item, ok := s.popHighestPriorityLocked()
		if ok {
			s.mu.Unlock()
			item.execute()
			s.mu.Lock()
			continue
		}
		if s.shuttingDown {
			s.mu.Unlock()
			return
		}
		s.cond.Wait()
	}
}

// popHighestPriorityLocked must be called with s.mu held.
func (s *subsystem) popHighestPriorityLocked() (WorkItem, bool) {
	for p := numPriorities - 1; p >= 0; p-- {
		if !s.queues[p].IsEmpty() {
			item, err := s.queues[p].Dequeue()
			if err == nil {
				return item, true
			}
		}
	}
	return WorkItem{}, false
}
