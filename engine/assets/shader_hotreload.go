package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/shadercompiler"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// shaderSourceExts is the closed set of extensions the shader fast path
// claims; anything else falls through to the generic HotReloadCoordinator
// (spec.md §4.4: ".vert/.frag/.comp/.glsl/...").
var shaderSourceExts = map[string]bool{
	".vert": true, ".frag": true, ".comp": true, ".geom": true,
	".tesc": true, ".tese": true, ".glsl": true, ".hlsl": true,
}

func isShaderSource(path string) bool {
	return shaderSourceExts[strings.ToLower(filepath.Ext(path))]
}

// isCachedArtifactPath reports whether path names a derived/cached file
// the watcher should never attempt to recompile (spec.md §4.4 step 1,
// "skip cached artifacts by path pattern") — compiled SPIR-V blobs the
// pipeline system itself writes back alongside the source, for instance.
func isCachedArtifactPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".spv" || strings.Contains(path, string(filepath.Separator)+"cache"+string(filepath.Separator))
}

// PipelinePublisher is the "pipeline/material system" external
// collaborator spec.md §6 names as out of scope: the component that
// owns live graphics pipelines and knows how to hot-swap a shader
// stage's compiled SPIR-V into one. The shader hot-reload path's only
// job is handing it a fresh blob; it never inspects what the publisher
// does with it.
type PipelinePublisher interface {
	PublishShader(path string, spirv []byte) error
}

// shaderTrack is the per-file bookkeeping the shader fast path keeps
// instead of going through the Registry (spec.md §7: shader
// CompileFailure is "recovered locally ... no registry mutation").
type shaderTrack struct {
	modTime    time.Time
	size       int64
	inProgress atomic.Bool
}

// SubsystemShaderHotReload is the thread-pool subsystem the shader
// fast path's own watcher dispatch runs on. It is distinct from the
// generic Hot-Reload Coordinator's subsystem so a burst of shader saves
// never starves ordinary (texture/mesh/script) reload dispatch.
const SubsystemShaderHotReload = "shader_hot_reload"

// ShaderHotReloadCoordinator is the dedicated fast path for shader
// source (spec.md §4.4, "Shader hot-reload path (specialization)"): it
// compiles inline on the worker thread that received the file event,
// then hands the compiled blob to the pipeline system as a GPU work
// item, rather than routing through the Loader's two-stage pipeline at
// all.
type ShaderHotReloadCoordinator struct {
	pool      threadpool.Pool
	watcher   *Watcher
	compiler  shadercompiler.Compiler
	publisher PipelinePublisher
	opts      shadercompiler.Options

	mu      sync.Mutex
	tracked map[string]*shaderTrack
}

func NewShaderHotReloadCoordinator(pool threadpool.Pool, notifier Notifier, compiler shadercompiler.Compiler, publisher PipelinePublisher) (*ShaderHotReloadCoordinator, error) {
	if err := pool.RegisterSubsystem(SubsystemShaderHotReload, threadpool.WorkKindHotReload, 1, 2, threadpool.PriorityNormal); err != nil {
		return nil, err
	}
	c := &ShaderHotReloadCoordinator{
		pool:      pool,
		compiler:  compiler,
		publisher: publisher,
		opts:      shadercompiler.DefaultHotReloadOptions(),
		tracked:   make(map[string]*shaderTrack),
	}
	c.watcher = NewWatcher(notifier, pool, SubsystemShaderHotReload)
	c.watcher.Start(c.OnFileEvent)
	return c, nil
}

// Register starts watching path and records its current mtime/size
// (spec.md §4.4 step 3). Unlike the generic coordinator, no Registry id
// is involved: the shader fast path never mutates asset lifecycle state.
func (c *ShaderHotReloadCoordinator) Register(path string) error {
	c.trackFile(path)
	return c.watcher.AddPath(path)
}

func (c *ShaderHotReloadCoordinator) trackFile(path string) *shaderTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tracked[path]
	if !ok {
		t = &shaderTrack{}
		c.tracked[path] = t
	}
	if info, err := os.Stat(path); err == nil {
		t.modTime = info.ModTime()
		t.size = info.Size()
	}
	return t
}

// OnFileEvent runs on a shader_hot_reload worker (spec.md §4.4). It
// compiles inline rather than handing off to a second stage: shader
// compilation is CPU-only, so there is no GPU-construction half to
// defer the way textures and meshes do.
func (c *ShaderHotReloadCoordinator) OnFileEvent(path string) {
	if isCachedArtifactPath(path) {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		c.rescanDirectory(path)
		return
	}

	if !isShaderSource(path) {
		return
	}

	c.mu.Lock()
	t, tracked := c.tracked[path]
	c.mu.Unlock()
	if !tracked {
		return
	}

	if !t.inProgress.CompareAndSwap(false, true) {
		return
	}
	c.trackFile(path)

	blob, err := c.compiler.CompileFile(path, c.opts)
	if err != nil {
		core.LogWarn("shader hot-reload: compile %q: %v", path, err)
		t.inProgress.Store(false)
		return
	}

	if err := c.submitPublish(path, blob); err != nil {
		core.LogError("shader hot-reload: submitting publish for %q: %v", path, err)
		t.inProgress.Store(false)
		return
	}
	// The job is handed off; clear the flag now so the next file event
	// can start a fresh compile rather than waiting on the (separately
	// scheduled) publish job to run.
	t.inProgress.Store(false)
}

// submitPublish heap-allocates the publish job (spec.md §4.4 step 5) and
// submits it as a High-priority GPU work item. The worker function calls
// straight into the pipeline system's PublishShader — "whose worker is
// provided by the pipeline system" — rather than anything owned by this
// package.
func (c *ShaderHotReloadCoordinator) submitPublish(path string, spirv []byte) error {
	job := &shaderPublishJob{path: path, spirv: spirv}
	return c.pool.Submit(SubsystemGPUWork, threadpool.WorkItem{
		Kind:     threadpool.WorkKindGPU,
		Priority: threadpool.PriorityHigh,
		Payload:  job,
		Run: func(payload interface{}) error {
			j := payload.(*shaderPublishJob)
			return c.publisher.PublishShader(j.path, j.spirv)
		},
	})
}

type shaderPublishJob struct {
	path  string
	spirv []byte
}

// rescanDirectory registers any newly-appeared shader source files
// (spec.md §4.4 step 2) the same way the generic coordinator's
// rescanDirectory does for its own asset kinds.
func (c *ShaderHotReloadCoordinator) rescanDirectory(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		core.LogWarn("shader hot-reload: rescanning %q: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isShaderSource(path) {
			continue
		}

		c.mu.Lock()
		_, already := c.tracked[path]
		c.mu.Unlock()
		if already {
			continue
		}

		if err := c.Register(path); err != nil {
			core.LogError("shader hot-reload: registering %q: %v", path, err)
		}
	}
}
