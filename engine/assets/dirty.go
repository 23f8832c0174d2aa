package assets

import "sync/atomic"

// dirtyFlag is the (dirty, updating) atomic pair spec.md §4.3 specifies
// uniformly for every rebuildable resource class: "downstream rebuild
// jobs observe (dirty ∧ ¬updating) to claim work". TryClaim is the only
// way updating ever becomes true, so exactly one caller ever wins a
// given rebuild.
type dirtyFlag struct {
	dirty    atomic.Bool
	updating atomic.Bool
}

func (f *dirtyFlag) markDirty() {
	f.dirty.Store(true)
}

// TryClaim claims the rebuild if the flag is dirty and not already
// claimed. Returns false if there's nothing to do or another rebuilder
// already owns it.
func (f *dirtyFlag) tryClaim() bool {
	if !f.dirty.Load() {
		return false
	}
	return f.updating.CompareAndSwap(false, true)
}

// publish clears both flags, making the rebuild's results visible and
// the flag eligible to be claimed again by a future change.
func (f *dirtyFlag) publish() {
	f.dirty.Store(false)
	f.updating.Store(false)
}

func (f *dirtyFlag) isDirty() bool    { return f.dirty.Load() }
func (f *dirtyFlag) isUpdating() bool { return f.updating.Load() }
