package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Kinubi/zephyr-assets/engine/decode"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// synchronousPool runs every submitted work item inline on the calling
// goroutine instead of spawning workers, so loader tests are
// deterministic without sleeps or channels.
type synchronousPool struct {
	mu   sync.Mutex
	runs int
}

func (p *synchronousPool) RegisterSubsystem(string, threadpool.WorkKind, int, int, threadpool.Priority) error {
	return nil
}
func (p *synchronousPool) RequestWorkers(string, int) (int, error) { return 1, nil }
func (p *synchronousPool) Submit(_ string, item threadpool.WorkItem) error {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
	return item.Run(item.Payload)
}
func (p *synchronousPool) Shutdown() {}

type fakeImageDecoder struct{ err error }

func (d fakeImageDecoder) DecodeImage(path string, data []byte) (decode.Image, error) {
	if d.err != nil {
		return decode.Image{}, d.err
	}
	return decode.Image{Width: 2, Height: 2, ChannelCount: 4, Pixels: make([]byte, 16)}, nil
}

type fakeMeshDecoder struct{ err error }

func (d fakeMeshDecoder) DecodeMesh(path string, data []byte) (decode.Model, error) {
	if d.err != nil {
		return decode.Model{}, d.err
	}
	return decode.Model{Submeshes: []decode.Submesh{{Name: "m", Positions: []float32{0, 0, 0}, Indices: []uint32{0}}}}, nil
}

type recordingInstaller struct {
	mu       sync.Mutex
	textures map[AssetId]gpu.Texture
	meshes   map[AssetId]gpu.Mesh
	scripts  map[AssetId][]byte
	failNext error
}

func newRecordingInstaller() *recordingInstaller {
	return &recordingInstaller{
		textures: make(map[AssetId]gpu.Texture),
		meshes:   make(map[AssetId]gpu.Mesh),
		scripts:  make(map[AssetId][]byte),
	}
}

func (r *recordingInstaller) InstallTexture(id AssetId, texture gpu.Texture) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.mu.Lock()
	r.textures[id] = texture
	r.mu.Unlock()
	return nil
}
func (r *recordingInstaller) InstallMesh(id AssetId, mesh gpu.Mesh) error {
	r.mu.Lock()
	r.meshes[id] = mesh
	r.mu.Unlock()
	return nil
}
func (r *recordingInstaller) InstallScript(id AssetId, data []byte) error {
	r.mu.Lock()
	r.scripts[id] = append([]byte(nil), data...)
	r.mu.Unlock()
	return nil
}

func writeTempAsset(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestLoaderTextureHappyPath(t *testing.T) {
	dir := t.TempDir()
	writeTempAsset(t, dir, "rock.png", []byte("not-really-a-png"))

	r := NewRegistry()
	id, _ := r.Intern("rock.png", KindTexture)

	pool := &synchronousPool{}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, installer, dir)

	if err := loader.Request(id, threadpool.PriorityNormal); err != nil {
		t.Fatalf("Request: %v", err)
	}

	meta, _ := r.LookupByID(id)
	if meta.State != StateLoaded {
		t.Fatalf("expected Loaded, got %s", meta.State)
	}
	if _, ok := installer.textures[id]; !ok {
		t.Fatal("expected texture installed")
	}
	if loader.Stats().Snapshot().Completed != 1 {
		t.Fatalf("expected 1 completion, got %+v", loader.Stats().Snapshot())
	}
}

func TestLoaderMeshHappyPath(t *testing.T) {
	dir := t.TempDir()
	writeTempAsset(t, dir, "cube.obj", []byte("v 0 0 0\nf 1 1 1\n"))

	r := NewRegistry()
	id, _ := r.Intern("cube.obj", KindMesh)

	pool := &synchronousPool{}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, installer, dir)

	if err := loader.Request(id, threadpool.PriorityNormal); err != nil {
		t.Fatalf("Request: %v", err)
	}

	meta, _ := r.LookupByID(id)
	if meta.State != StateLoaded {
		t.Fatalf("expected Loaded, got %s", meta.State)
	}
	if _, ok := installer.meshes[id]; !ok {
		t.Fatal("expected mesh installed")
	}
}

func TestLoaderScriptHappyPathSkipsGpuStage(t *testing.T) {
	dir := t.TempDir()
	writeTempAsset(t, dir, "script.lua", []byte("print('hi')"))

	r := NewRegistry()
	id, _ := r.Intern("script.lua", KindScript)

	pool := &synchronousPool{}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, installer, dir)

	if err := loader.Request(id, threadpool.PriorityNormal); err != nil {
		t.Fatalf("Request: %v", err)
	}

	meta, _ := r.LookupByID(id)
	if meta.State != StateLoaded {
		t.Fatalf("expected Loaded, got %s", meta.State)
	}
	if string(installer.scripts[id]) != "print('hi')" {
		t.Fatalf("unexpected script bytes: %q", installer.scripts[id])
	}
}

func TestLoaderUnsupportedExtensionFails(t *testing.T) {
	dir := t.TempDir()
	writeTempAsset(t, dir, "mystery.xyz", []byte("???"))

	r := NewRegistry()
	id, _ := r.Intern("mystery.xyz", KindTexture)

	pool := &synchronousPool{}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, installer, dir)

	loader.Request(id, threadpool.PriorityNormal)

	meta, _ := r.LookupByID(id)
	if meta.State != StateFailed {
		t.Fatalf("expected Failed, got %s", meta.State)
	}
	if loader.Stats().Snapshot().Failed != 1 {
		t.Fatalf("expected 1 failure recorded")
	}
}

func TestLoaderMissingFileFails(t *testing.T) {
	dir := t.TempDir()

	r := NewRegistry()
	id, _ := r.Intern("missing.png", KindTexture)

	pool := &synchronousPool{}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, installer, dir)

	loader.Request(id, threadpool.PriorityNormal)

	meta, _ := r.LookupByID(id)
	if meta.State != StateFailed {
		t.Fatalf("expected Failed, got %s", meta.State)
	}
}

func TestLoaderDecodeFailureMarksFailed(t *testing.T) {
	dir := t.TempDir()
	writeTempAsset(t, dir, "broken.png", []byte("garbage"))

	r := NewRegistry()
	id, _ := r.Intern("broken.png", KindTexture)

	pool := &synchronousPool{}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{err: errors.New("bad header")}, fakeMeshDecoder{}, installer, dir)

	loader.Request(id, threadpool.PriorityNormal)

	meta, _ := r.LookupByID(id)
	if meta.State != StateFailed {
		t.Fatalf("expected Failed, got %s", meta.State)
	}
}

func TestLoaderRejectsDuplicateSubmission(t *testing.T) {
	dir := t.TempDir()
	writeTempAsset(t, dir, "rock.png", []byte("bytes"))

	r := NewRegistry()
	id, _ := r.Intern("rock.png", KindTexture)

	// A pool that blocks the first submission so a second Request call
	// observes the asset still in Loading, proving the registry's
	// compare-and-swap — not the pool — is what dedups.
	block := make(chan struct{})
	started := make(chan struct{})
	pool := &blockingPool{block: block, started: started}
	installer := newRecordingInstaller()
	loader := NewLoader(r, pool, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, installer, dir)

	go loader.Request(id, threadpool.PriorityNormal)
	<-started

	if err := loader.Request(id, threadpool.PriorityNormal); err != nil {
		t.Fatalf("second Request: %v", err)
	}
	close(block)

	time.Sleep(10 * time.Millisecond)
	if pool.submissions() != 1 {
		t.Fatalf("expected exactly 1 submission, got %d", pool.submissions())
	}
}

// blockingPool counts and blocks only asset_loading submissions; the
// gpu_work item a texture's I/O stage hands off afterwards runs inline.
type blockingPool struct {
	mu    sync.Mutex
	count int
	block chan struct{}
	started chan struct{}
	startOnce sync.Once
}

func (p *blockingPool) RegisterSubsystem(string, threadpool.WorkKind, int, int, threadpool.Priority) error {
	return nil
}
func (p *blockingPool) RequestWorkers(string, int) (int, error) { return 1, nil }
func (p *blockingPool) Submit(subsystem string, item threadpool.WorkItem) error {
	if subsystem != SubsystemAssetLoading {
		return item.Run(item.Payload)
	}
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
	p.startOnce.Do(func() { close(p.started) })
	<-p.block
	return item.Run(item.Payload)
}
func (p *blockingPool) Shutdown() {}
func (p *blockingPool) submissions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
