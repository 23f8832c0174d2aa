package threadpool

// WorkKind tags which subsystem a work item belongs to, the Go rendering
// of the spec's "tagged work items replace dynamic dispatch" design note:
// one variant per work kind rather than a vtable of worker objects.
type WorkKind int

const (
	WorkKindAssetLoading WorkKind = iota
	WorkKindGPU
	WorkKindHotReload
	WorkKindCustom
)

func (k WorkKind) String() string {
	switch k {
	case WorkKindAssetLoading:
		return "asset_loading"
	case WorkKindGPU:
		return "gpu_work"
	case WorkKindHotReload:
		return "hot_reload"
	case WorkKindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// WorkItem is a unit of work submitted to a subsystem. Run is the worker
// function, carrying an opaque Payload instead of a closure-captured
// context pointer so a submitted item can be logged, retried, or counted
// without special-casing its contents.
type WorkItem struct {
	Kind     WorkKind
	Priority Priority
	Payload  interface{}

	// Run executes the work item on a pool worker goroutine.
	Run func(payload interface{}) error

	// OnSuccess/OnFailure are optional completion callbacks, invoked on
	// the same worker goroutine immediately after Run returns.
	OnSuccess func(payload interface{})
	OnFailure func(payload interface{}, err error)
}

func (w WorkItem) execute() {
	err := w.Run(w.Payload)
	if err != nil {
		if w.OnFailure != nil {
			w.OnFailure(w.Payload, err)
		}
		return
	}
	if w.OnSuccess != nil {
		w.OnSuccess(w.Payload)
	}
}
