package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/decode"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// Subsystem names registered with the thread pool, exported so the
// Manager and the demo wiring can register/request against the same
// strings the Loader submits to.
const (
	SubsystemAssetLoading = "asset_loading"
	SubsystemGPUWork      = "gpu_work"
)

const (
	textureReadCap = 100 * 1024 * 1024
	scriptReadCap  = 64 * 1024
)

// ResourceInstaller is the contract the Loader's GPU-worker stage uses
// to hand a constructed resource to the Manager (spec.md §4.2, "hand it
// to Manager::install_texture"). Split out as its own interface so
// loader tests can substitute a lightweight fake instead of a full
// Manager with a live fallback set.
type ResourceInstaller interface {
	InstallTexture(id AssetId, texture gpu.Texture) error
	InstallMesh(id AssetId, mesh gpu.Mesh) error
	InstallScript(id AssetId, data []byte) error
}

// Loader is the two-stage CPU-read/decode -> GPU-construct pipeline
// (spec.md §4.2). It holds no asset state of its own beyond in-flight
// staging records; the Registry is the only source of truth for
// lifecycle.
type Loader struct {
	registry  *Registry
	pool      threadpool.Pool
	gpuCtx    gpu.Context
	images    decode.ImageDecoder
	meshes    decode.MeshDecoder
	installer ResourceInstaller
	basePath  string
	stats     *Stats
}

func NewLoader(registry *Registry, pool threadpool.Pool, gpuCtx gpu.Context, images decode.ImageDecoder, meshes decode.MeshDecoder, installer ResourceInstaller, basePath string) *Loader {
	return &Loader{
		registry:  registry,
		pool:      pool,
		gpuCtx:    gpuCtx,
		images:    images,
		meshes:    meshes,
		installer: installer,
		basePath:  basePath,
		stats:     NewStats(),
	}
}

func (l *Loader) Stats() *Stats { return l.stats }

// workersForPriority maps a submission's priority to the worker count
// the Loader asks the asset_loading subsystem to have ready (spec.md
// §4.2: "Critical=6, High=4, Normal=2, Low=1").
func workersForPriority(p threadpool.Priority) int {
	switch p {
	case threadpool.PriorityCritical:
		return 6
	case threadpool.PriorityHigh:
		return 4
	case threadpool.PriorityNormal:
		return 2
	default:
		return 1
	}
}

type ioPayload struct {
	id       AssetId
	priority threadpool.Priority
	trace    string
}

// Request claims the load for id via the Registry's compare-and-swap
// and submits it to the asset_loading subsystem. If the claim fails
// (already in flight or already done) it returns silently — this is
// the dedup boundary spec.md §8 scenario 2 exercises. Each accepted
// request gets a short trace id so a single asset's I/O-stage and
// GPU-stage log lines can be correlated across the two worker
// goroutines that handle it.
func (l *Loader) Request(id AssetId, priority threadpool.Priority) error {
	if !l.registry.TryBeginLoading(id) {
		return nil
	}
	l.stats.recordSubmission()

	trace := uuid.NewString()[:8]
	core.LogDebug("loader: [%s] submitting %d at priority %s", trace, id, priority)

	if _, err := l.pool.RequestWorkers(SubsystemAssetLoading, workersForPriority(priority)); err != nil {
		return err
	}
	return l.pool.Submit(SubsystemAssetLoading, threadpool.WorkItem{
		Kind:     threadpool.WorkKindAssetLoading,
		Priority: priority,
		Payload:  ioPayload{id: id, priority: priority, trace: trace},
		Run:      l.runIOStage,
	})
}

func readCapped(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("file exceeds %d byte cap", limit)
	}
	return io.ReadAll(f)
}

func (l *Loader) runIOStage(payload interface{}) error {
	p := payload.(ioPayload)
	id := p.id

	meta, ok := l.registry.LookupByID(id)
	if !ok {
		return core.ErrNotFound
	}
	clk := core.NewClock()
	clk.Start()
	fullPath := filepath.Join(l.basePath, meta.Path)
	ext := strings.ToLower(filepath.Ext(meta.Path))
	core.LogDebug("loader: [%s] I/O stage starting for %d (%s)", p.trace, id, meta.Path)

	switch ext {
	case ".png", ".jpg", ".jpeg":
		return l.runTextureIO(id, fullPath, clk, p.trace)
	case ".obj", ".gltf":
		return l.runMeshIO(id, fullPath, meta.Path, clk, p.trace)
	case ".lua", ".txt", ".zs":
		return l.runScriptIO(id, fullPath, clk)
	default:
		l.fail(id, fmt.Errorf("%s: %w", ext, core.ErrUnsupportedKind))
		return core.ErrUnsupportedKind
	}
}

// elapsed reads how long clk has been running as a time.Duration,
// updating it first so the reading reflects the current instant.
func elapsed(clk *core.Clock) time.Duration {
	clk.Update()
	return time.Duration(int64(clk.Elapsed()))
}

func (l *Loader) fail(id AssetId, err error) {
	if markErr := l.registry.MarkFailed(id, err); markErr != nil {
		core.LogError("loader: MarkFailed(%d) after %v: %v", id, err, markErr)
	}
	l.stats.recordFailure()
	core.LogWarn("loader: %d failed: %v", id, err)
}

// stageTexture runs the CPU-side half of a texture load: read, decode,
// mark Staged. Shared between the async I/O-worker path and the
// synchronous fallback-bootstrap path.
func (l *Loader) stageTexture(id AssetId, fullPath string, clk *core.Clock) (textureStaging, error) {
	data, err := readCapped(fullPath, textureReadCap)
	if err != nil {
		return textureStaging{}, fmt.Errorf("%w: %v", core.ErrReadFailure, err)
	}

	img, err := l.images.DecodeImage(fullPath, data)
	if err != nil {
		return textureStaging{}, fmt.Errorf("%w: %v", core.ErrDecodeFailure, err)
	}

	if err := l.registry.MarkStaged(id, uint64(len(data))); err != nil {
		return textureStaging{}, err
	}
	return textureStaging{id: id, image: img, clock: clk}, nil
}

// constructTexture runs the GPU-side half: build the resource, install
// it, mark Loaded. Shared the same way as stageTexture.
func (l *Loader) constructTexture(st textureStaging) error {
	tex, err := l.gpuCtx.CreateTexture(st.image.Pixels, st.image.Width, st.image.Height, gpu.PixelFormatRGBA8)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrGpuConstruct, err)
	}
	if err := l.installer.InstallTexture(st.id, tex); err != nil {
		return fmt.Errorf("%w: %v", core.ErrGpuConstruct, err)
	}
	return l.registry.MarkLoaded(st.id)
}

func (l *Loader) stageMesh(id AssetId, fullPath, relPath string, clk *core.Clock) (meshStaging, error) {
	data, err := readCapped(fullPath, textureReadCap)
	if err != nil {
		return meshStaging{}, fmt.Errorf("%w: %v", core.ErrReadFailure, err)
	}

	model, err := l.meshes.DecodeMesh(fullPath, data)
	if err != nil {
		return meshStaging{}, fmt.Errorf("%w: %v", core.ErrDecodeFailure, err)
	}

	if err := l.registry.MarkStaged(id, uint64(len(data))); err != nil {
		return meshStaging{}, err
	}
	return meshStaging{id: id, path: relPath, model: model, clock: clk}, nil
}

func (l *Loader) constructMesh(st meshStaging) error {
	mesh, err := l.gpuCtx.CreateMesh(st.model)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrGpuConstruct, err)
	}
	if err := l.installer.InstallMesh(st.id, mesh); err != nil {
		return fmt.Errorf("%w: %v", core.ErrGpuConstruct, err)
	}
	return l.registry.MarkLoaded(st.id)
}

func (l *Loader) runTextureIO(id AssetId, fullPath string, clk *core.Clock, trace string) error {
	st, err := l.stageTexture(id, fullPath, clk)
	if err != nil {
		l.fail(id, err)
		return err
	}
	st.trace = trace
	core.LogDebug("loader: [%s] %d staged, handing off to gpu_work", trace, id)

	if _, err := l.pool.RequestWorkers(SubsystemGPUWork, 2); err != nil {
		l.fail(id, err)
		return err
	}
	return l.pool.Submit(SubsystemGPUWork, threadpool.WorkItem{
		Kind:     threadpool.WorkKindGPU,
		Priority: threadpool.PriorityCritical,
		Payload:  st,
		Run:      l.runTextureGPU,
	})
}

func (l *Loader) runMeshIO(id AssetId, fullPath, relPath string, clk *core.Clock, trace string) error {
	st, err := l.stageMesh(id, fullPath, relPath, clk)
	if err != nil {
		l.fail(id, err)
		return err
	}
	st.trace = trace
	core.LogDebug("loader: [%s] %d staged, handing off to gpu_work", trace, id)

	if _, err := l.pool.RequestWorkers(SubsystemGPUWork, 2); err != nil {
		l.fail(id, err)
		return err
	}
	return l.pool.Submit(SubsystemGPUWork, threadpool.WorkItem{
		Kind:     threadpool.WorkKindGPU,
		Priority: threadpool.PriorityCritical,
		Payload:  st,
		Run:      l.runMeshGPU,
	})
}

func (l *Loader) runScriptIO(id AssetId, fullPath string, clk *core.Clock) error {
	data, err := readCapped(fullPath, scriptReadCap)
	if err != nil {
		l.fail(id, fmt.Errorf("%w: %v", core.ErrReadFailure, err))
		return err
	}

	if err := l.installer.InstallScript(id, data); err != nil {
		l.fail(id, err)
		return err
	}
	l.stats.recordCompletion(elapsed(clk))
	return nil
}

func (l *Loader) runTextureGPU(payload interface{}) error {
	st := payload.(textureStaging)
	if err := l.constructTexture(st); err != nil {
		l.fail(st.id, err)
		return err
	}
	l.stats.recordCompletion(elapsed(st.clock))
	core.LogDebug("loader: [%s] %d loaded", st.trace, st.id)
	return nil
}

func (l *Loader) runMeshGPU(payload interface{}) error {
	st := payload.(meshStaging)
	if err := l.constructMesh(st); err != nil {
		l.fail(st.id, err)
		return err
	}
	l.stats.recordCompletion(elapsed(st.clock))
	core.LogDebug("loader: [%s] %d loaded", st.trace, st.id)
	return nil
}

// LoadSync performs a full texture or mesh load on the calling
// goroutine, bypassing the thread pool entirely. The Fallback Set uses
// this exclusively (spec.md §4.5: "these artifacts bypass the async
// pipeline; they are resident before any non-fallback load is
// accepted").
func (l *Loader) LoadSync(path string, kind AssetKind) (AssetId, error) {
	id, err := l.registry.Intern(path, kind)
	if err != nil {
		return InvalidAssetID, err
	}
	if !l.registry.TryBeginLoading(id) {
		return id, nil
	}

	clk := core.NewClock()
	clk.Start()
	fullPath := filepath.Join(l.basePath, path)

	switch kind {
	case KindTexture:
		st, err := l.stageTexture(id, fullPath, clk)
		if err != nil {
			l.fail(id, err)
			return id, err
		}
		if err := l.constructTexture(st); err != nil {
			l.fail(id, err)
			return id, err
		}
	case KindMesh:
		st, err := l.stageMesh(id, fullPath, path, clk)
		if err != nil {
			l.fail(id, err)
			return id, err
		}
		if err := l.constructMesh(st); err != nil {
			l.fail(id, err)
			return id, err
		}
	default:
		err := fmt.Errorf("loader: LoadSync does not support kind %s", kind)
		l.fail(id, err)
		return id, err
	}

	l.stats.recordCompletion(elapsed(clk))
	return id, nil
}
