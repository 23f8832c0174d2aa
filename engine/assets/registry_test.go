package assets

import (
	"errors"
	"testing"

	"github.com/Kinubi/zephyr-assets/engine/core"
)

func TestInternIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id1, err := r.Intern("textures/rock.png", KindTexture)
	if err != nil {
		t.Fatalf("first intern: %v", err)
	}
	id2, err := r.Intern("textures/rock.png", KindTexture)
	if err != nil {
		t.Fatalf("second intern: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}
}

func TestInternConflictingKindFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Intern("materials/rock.mat", KindMaterial); err != nil {
		t.Fatalf("intern: %v", err)
	}
	if _, err := r.Intern("materials/rock.mat", KindTexture); !errors.Is(err, core.ErrStateViolation) {
		t.Fatalf("expected ErrStateViolation, got %v", err)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	if !r.TryBeginLoading(id) {
		t.Fatal("expected TryBeginLoading to succeed from Unloaded")
	}
	if err := r.MarkStaged(id, 1024); err != nil {
		t.Fatalf("MarkStaged: %v", err)
	}
	if err := r.MarkLoaded(id); err != nil {
		t.Fatalf("MarkLoaded: %v", err)
	}

	meta, ok := r.LookupByID(id)
	if !ok || meta.State != StateLoaded {
		t.Fatalf("expected Loaded, got %+v", meta)
	}
	if meta.ByteSize != 1024 {
		t.Fatalf("expected byte size 1024, got %d", meta.ByteSize)
	}
}

func TestTryBeginLoadingRejectsDuplicateClaim(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	if !r.TryBeginLoading(id) {
		t.Fatal("first claim should succeed")
	}
	if r.TryBeginLoading(id) {
		t.Fatal("second concurrent claim should fail")
	}
}

func TestMarkStagedFromWrongStateIsViolation(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	if err := r.MarkStaged(id, 10); !errors.Is(err, core.ErrStateViolation) {
		t.Fatalf("expected ErrStateViolation from Unloaded, got %v", err)
	}
}

func TestFailedAllowsRetryByTryBeginLoading(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	r.TryBeginLoading(id)
	if err := r.MarkFailed(id, errors.New("disk error")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	meta, _ := r.LookupByID(id)
	if meta.State != StateFailed || meta.LastError == "" {
		t.Fatalf("expected Failed with reason recorded, got %+v", meta)
	}

	if !r.TryBeginLoading(id) {
		t.Fatal("expected retry from Failed to succeed")
	}
}

func TestForceUnloadOnlyFromLoaded(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	if err := r.ForceUnload(id); !errors.Is(err, core.ErrStateViolation) {
		t.Fatalf("expected violation unloading from Unloaded, got %v", err)
	}

	r.TryBeginLoading(id)
	r.MarkStaged(id, 1)
	r.MarkLoaded(id)

	if err := r.ForceUnload(id); err != nil {
		t.Fatalf("ForceUnload from Loaded: %v", err)
	}
	meta, _ := r.LookupByID(id)
	if meta.State != StateUnloaded {
		t.Fatalf("expected Unloaded, got %s", meta.State)
	}
}

func TestDependencyEdgesAreReciprocal(t *testing.T) {
	r := NewRegistry()
	mat, _ := r.Intern("materials/rock.mat", KindMaterial)
	tex, _ := r.Intern("textures/rock.png", KindTexture)

	if err := r.AddDependency(mat, tex); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	matMeta, _ := r.LookupByID(mat)
	texMeta, _ := r.LookupByID(tex)
	if !containsID(matMeta.Dependencies, tex) {
		t.Fatal("expected material to depend on texture")
	}
	if !containsID(texMeta.Dependents, mat) {
		t.Fatal("expected texture to list material as dependent")
	}

	if err := r.RemoveDependency(mat, tex); err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}
	matMeta, _ = r.LookupByID(mat)
	texMeta, _ = r.LookupByID(tex)
	if containsID(matMeta.Dependencies, tex) || containsID(texMeta.Dependents, mat) {
		t.Fatal("expected both edges removed")
	}
}

func TestSnapshotIsolatesInternalState(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	meta, _ := r.LookupByID(id)
	meta.State = StateLoaded
	meta.Path = "tampered"

	fresh, _ := r.LookupByID(id)
	if fresh.State != StateUnloaded || fresh.Path != "textures/rock.png" {
		t.Fatalf("mutating a snapshot must not affect registry state, got %+v", fresh)
	}
}

func TestRefcounting(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Intern("textures/rock.png", KindTexture)

	r.Incref(id)
	r.Incref(id)
	meta, _ := r.LookupByID(id)
	if meta.RefCount != 2 {
		t.Fatalf("expected refcount 2, got %d", meta.RefCount)
	}

	reachedZero, _ := r.Decref(id)
	if reachedZero {
		t.Fatal("expected refcount 1 to not report reached_zero")
	}
	meta, _ = r.LookupByID(id)
	if meta.RefCount != 1 {
		t.Fatalf("expected refcount 1, got %d", meta.RefCount)
	}

	reachedZero, _ = r.Decref(id)
	if !reachedZero {
		t.Fatal("expected decref to zero to report reached_zero")
	}
}
