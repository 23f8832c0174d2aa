package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// SubsystemHotReload is the thread-pool subsystem the generic
// Hot-Reload Coordinator dispatches file events through.
const SubsystemHotReload = "hot_reload"

func assetKindForExt(ext string) (AssetKind, bool) {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg":
		return KindTexture, true
	case ".obj", ".gltf":
		return KindMesh, true
	case ".lua", ".txt", ".zs":
		return KindScript, true
	default:
		return 0, false
	}
}

// reloadPriority maps an asset's kind to the priority its reload is
// resubmitted at: shaders Critical, textures High, meshes Normal, every
// other kind Low. Only the kind is consulted; the asset's path plays no
// part, so UI assets get no priority of their own.
func reloadPriority(kind AssetKind) threadpool.Priority {
	switch kind {
	case KindShader:
		return threadpool.PriorityCritical
	case KindTexture:
		return threadpool.PriorityHigh
	case KindMesh:
		return threadpool.PriorityNormal
	default:
		return threadpool.PriorityLow
	}
}

// HotReloadCoordinator bridges a filesystem Notifier to the Loader,
// force-unloading and resubmitting an asset whenever its source file
// changes (spec.md §4.4).
type HotReloadCoordinator struct {
	registry *Registry
	loader   *Loader
	watcher  *Watcher

	mu         sync.Mutex
	byPath     map[string]AssetId
	inProgress map[AssetId]*atomic.Bool
}

func NewHotReloadCoordinator(registry *Registry, loader *Loader, pool threadpool.Pool, notifier Notifier) (*HotReloadCoordinator, error) {
	if err := pool.RegisterSubsystem(SubsystemHotReload, threadpool.WorkKindHotReload, 1, 2, threadpool.PriorityNormal); err != nil {
		return nil, err
	}
	c := &HotReloadCoordinator{
		registry:   registry,
		loader:     loader,
		byPath:     make(map[string]AssetId),
		inProgress: make(map[AssetId]*atomic.Bool),
	}
	c.watcher = NewWatcher(notifier, pool, SubsystemHotReload)
	c.watcher.Start(c.OnFileEvent)
	return c, nil
}

// Register records the id<->path mapping and starts watching path.
func (c *HotReloadCoordinator) Register(id AssetId, path string) error {
	c.mu.Lock()
	c.byPath[path] = id
	if _, ok := c.inProgress[id]; !ok {
		c.inProgress[id] = new(atomic.Bool)
	}
	c.mu.Unlock()
	return c.watcher.AddPath(path)
}

func (c *HotReloadCoordinator) progressFlag(id AssetId) *atomic.Bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.inProgress[id]
	if !ok {
		f = new(atomic.Bool)
		c.inProgress[id] = f
	}
	return f
}

// OnFileEvent runs on a pool worker (spec.md §4.4). If path is a
// registered asset, force-unloads it and resubmits a load at a
// kind-appropriate priority; ForceUnload only accepts a Loaded asset,
// so an event for a registered asset in any other state is logged and
// dropped. If path is a directory, it's rescanned for newly-appeared
// asset files, which get interned (state Unloaded) and watched; the
// rescan does not load them.
func (c *HotReloadCoordinator) OnFileEvent(path string) {
	c.mu.Lock()
	id, tracked := c.byPath[path]
	c.mu.Unlock()

	if !tracked {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			c.rescanDirectory(path)
		}
		return
	}

	flag := c.progressFlag(id)
	if !flag.CompareAndSwap(false, true) {
		return
	}
	// The flag's job is to collapse a burst of events into one reload;
	// the Registry's own Unloaded<->Loading compare-and-swap is what
	// actually prevents a genuine race if a second event slips past it,
	// so it's safe to clear the flag once this reload has been handed
	// off rather than waiting for the (fully async) load to finish.
	defer flag.Store(false)

	if err := c.registry.ForceUnload(id); err != nil {
		core.LogWarn("hotreload: ForceUnload(%d) for %q: %v", id, path, err)
		return
	}

	meta, _ := c.registry.LookupByID(id)
	if err := c.loader.Request(id, reloadPriority(meta.Kind)); err != nil {
		core.LogError("hotreload: Request(%d) for %q: %v", id, path, err)
	}
}

func (c *HotReloadCoordinator) rescanDirectory(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		core.LogWarn("hotreload: rescanning %q: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, ok := assetKindForExt(filepath.Ext(entry.Name()))
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		c.mu.Lock()
		_, already := c.byPath[path]
		c.mu.Unlock()
		if already {
			continue
		}

		id, err := c.registry.Intern(path, kind)
		if err != nil {
			core.LogError("hotreload: interning %q: %v", path, err)
			continue
		}
		if err := c.Register(id, path); err != nil {
			core.LogError("hotreload: registering %q: %v", path, err)
		}
	}
}
