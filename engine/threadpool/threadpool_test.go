package threadpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterSubsystemRejectsBadBudgets(t *testing.T) {
	tp := New()
	if err := tp.RegisterSubsystem("x", WorkKindCustom, 0, 1, PriorityNormal); err == nil {
		t.Fatal("expected error for min workers < 1")
	}
	if err := tp.RegisterSubsystem("x", WorkKindCustom, 2, 1, PriorityNormal); err == nil {
		t.Fatal("expected error for max < min")
	}
	if err := tp.RegisterSubsystem("x", WorkKindCustom, 1, 1, PriorityNormal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tp.RegisterSubsystem("x", WorkKindCustom, 1, 1, PriorityNormal); err == nil {
		t.Fatal("expected error re-registering the same subsystem name")
	}
	tp.Shutdown()
}

func TestSubmitRunsWorkOnRegisteredSubsystem(t *testing.T) {
	tp := New()
	if err := tp.RegisterSubsystem("asset_loading", WorkKindAssetLoading, 1, 2, PriorityNormal); err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	var ran int32
	err := tp.Submit("asset_loading", WorkItem{
		Kind:     WorkKindAssetLoading,
		Priority: PriorityNormal,
		Run: func(interface{}) error {
			atomic.StoreInt32(&ran, 1)
			return nil
		},
		OnSuccess: func(interface{}) { wg.Done() },
	})
	if err != nil {
		t.Fatal(err)
	}

	waitOrTimeout(t, &wg, time.Second)
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("work item did not run")
	}
}

func TestSubmitRejectsMismatchedKind(t *testing.T) {
	tp := New()
	if err := tp.RegisterSubsystem("gpu_work", WorkKindGPU, 1, 1, PriorityHigh); err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown()

	err := tp.Submit("gpu_work", WorkItem{Kind: WorkKindAssetLoading, Run: func(interface{}) error { return nil }})
	if err == nil {
		t.Fatal("expected kind mismatch error")
	}
}

func TestHighPriorityDrainsBeforeLow(t *testing.T) {
	tp := New()
	// A single worker so ordering is deterministic: everything queues up
	// before the lone worker starts pulling.
	if err := tp.RegisterSubsystem("s", WorkKindCustom, 1, 1, PriorityNormal); err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown()

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(3)

	record := func(label string) func(interface{}) error {
		return func(interface{}) error {
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			wg.Done()
			return nil
		}
	}

	// Block the single worker first so all three submissions queue up
	// before any of them is dequeued.
	block := make(chan struct{})
	var blockWG sync.WaitGroup
	blockWG.Add(1)
	if err := tp.Submit("s", WorkItem{Kind: WorkKindCustom, Priority: PriorityCritical, Run: func(interface{}) error {
		blockWG.Done()
		<-block
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	blockWG.Wait()

	if err := tp.Submit("s", WorkItem{Kind: WorkKindCustom, Priority: PriorityLow, Run: record("low")}); err != nil {
		t.Fatal(err)
	}
	if err := tp.Submit("s", WorkItem{Kind: WorkKindCustom, Priority: PriorityNormal, Run: record("normal")}); err != nil {
		t.Fatal(err)
	}
	if err := tp.Submit("s", WorkItem{Kind: WorkKindCustom, Priority: PriorityHigh, Run: record("high")}); err != nil {
		t.Fatal(err)
	}

	close(block)
	waitOrTimeout(t, &wg, time.Second)

	if len(order) != 3 || order[0] != "high" || order[1] != "normal" || order[2] != "low" {
		t.Fatalf("expected [high normal low], got %v", order)
	}
}

func TestRequestWorkersClampsToMax(t *testing.T) {
	tp := New()
	if err := tp.RegisterSubsystem("s", WorkKindCustom, 1, 3, PriorityNormal); err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown()

	n, err := tp.RequestWorkers("s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected running workers clamped to max=3, got %d", n)
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for work to complete")
	}
}
