package assets

import (
	"sync"

	"github.com/Kinubi/zephyr-assets/engine/config"
	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// Manager owns every resident artifact, the fallback-substitution
// policy, and the dirty-flag protocol that tells rendering code when
// the texture descriptor array must be rebuilt (spec.md §4.3). It holds
// no file-reading or decoding logic of its own — that's the Loader's
// job; the Manager is purely "what's resident, and what do I show
// instead if it isn't".
type Manager struct {
	registry *Registry
	loader   *Loader
	gpuCtx   gpu.Context

	textures  *slotTable[gpu.Texture]
	meshes    *slotTable[gpu.Mesh]
	materials *slotTable[materialRecord]
	scripts   *slotTable[[]byte]

	textureDirty  dirtyFlag
	materialDirty dirtyFlag
	materialBuf   materialBuffer

	descriptorMu    sync.RWMutex
	descriptorArray []gpu.Texture

	fallback FallbackSet
}

// NewManager wires the Manager to the registry and graphics context.
// The Manager itself satisfies ResourceInstaller, so its Loader must be
// constructed afterward (with the Manager passed in as the installer)
// and attached via SetLoader before Bootstrap or LoadAsync are called.
func NewManager(registry *Registry, gpuCtx gpu.Context) *Manager {
	return &Manager{
		registry:  registry,
		gpuCtx:    gpuCtx,
		textures:  newSlotTable[gpu.Texture](64),
		meshes:    newSlotTable[gpu.Mesh](32),
		materials: newSlotTable[materialRecord](32),
		scripts:   newSlotTable[[]byte](16),
		fallback: FallbackSet{
			MissingTexture: InvalidAssetID,
			LoadingTexture: InvalidAssetID,
			FailedTexture:  InvalidAssetID,
			DefaultTexture: InvalidAssetID,
			CubeMesh:       InvalidAssetID,
		},
	}
}

// SetLoader attaches the Loader this Manager's installer methods will
// be paired with. Must be called once, before Bootstrap or LoadAsync.
func (m *Manager) SetLoader(loader *Loader) {
	m.loader = loader
}

// Bootstrap synchronously loads the fixed fallback family (spec.md
// §4.5); it must complete before any non-fallback load is accepted.
func (m *Manager) Bootstrap(paths config.FallbackPaths) error {
	return m.bootstrapFallbacks(paths)
}

// LoadAsync interns path and, unless the asset is already in flight or
// resident, asks the Loader to load it (spec.md §4.3). Every call bumps
// the observational request counter regardless of whether it turns
// into a cache hit (spec.md §8 scenario 2).
func (m *Manager) LoadAsync(path string, kind AssetKind, priority threadpool.Priority) (AssetId, error) {
	id, err := m.registry.Intern(path, kind)
	if err != nil {
		return InvalidAssetID, err
	}
	m.loader.stats.recordRequest()

	meta, ok := m.registry.LookupByID(id)
	if ok && (meta.State == StateLoading || meta.State == StateStaged || meta.State == StateLoaded) {
		return id, nil
	}
	if err := m.loader.Request(id, priority); err != nil {
		return id, err
	}
	return id, nil
}

// GetTexture does a direct slot lookup, falling back to the missing
// placeholder if id has no texture slot yet.
func (m *Manager) GetTexture(id AssetId) (gpu.Texture, bool) {
	if tex, ok := m.textures.get(id); ok {
		return tex, true
	}
	if m.fallback.MissingTexture != InvalidAssetID {
		return m.textures.get(m.fallback.MissingTexture)
	}
	return nil, false
}

// GetMesh does a direct slot lookup, falling back to the fallback cube
// if id has no mesh slot yet.
func (m *Manager) GetMesh(id AssetId) (gpu.Mesh, bool) {
	if mesh, ok := m.meshes.get(id); ok {
		return mesh, true
	}
	if m.fallback.CubeMesh != InvalidAssetID {
		return m.meshes.get(m.fallback.CubeMesh)
	}
	return nil, false
}

// ResolveForRendering is the safe resolver (spec.md §4.3): it never
// returns an id whose kind differs from the requested id's kind.
func (m *Manager) ResolveForRendering(id AssetId) AssetId {
	meta, ok := m.registry.LookupByID(id)
	if !ok {
		return id
	}

	switch meta.State {
	case StateLoaded:
		return id
	case StateStaged, StateLoading:
		return m.fallbackFor(meta.Kind, id, "loading")
	case StateFailed:
		return m.fallbackFor(meta.Kind, id, "failed")
	case StateUnloaded:
		if err := m.loader.Request(id, threadpool.PriorityCritical); err != nil {
			core.LogError("manager: ResolveForRendering could not submit load for %d: %v", id, err)
		}
		return m.fallbackFor(meta.Kind, id, "missing")
	default:
		return id
	}
}

// fallbackFor implements the cascade spec.md §4.3 describes: the
// requested placeholder, else "missing", else the original id. Mesh
// has a single fallback role (the cube) for every case; kinds with no
// configured fallback family pass the original id through unchanged.
func (m *Manager) fallbackFor(kind AssetKind, id AssetId, which string) AssetId {
	if kind == KindMesh {
		if m.fallback.CubeMesh != InvalidAssetID {
			return m.fallback.CubeMesh
		}
		return id
	}
	if kind != KindTexture {
		return id
	}

	var candidates []AssetId
	switch which {
	case "loading":
		candidates = []AssetId{m.fallback.LoadingTexture, m.fallback.MissingTexture}
	case "failed":
		candidates = []AssetId{m.fallback.FailedTexture, m.fallback.MissingTexture}
	default:
		candidates = []AssetId{m.fallback.MissingTexture}
	}
	for _, c := range candidates {
		if c != InvalidAssetID {
			return c
		}
	}
	return id
}

// InstallTexture is called by the Loader's GPU-worker stage. A slot
// already held by id is updated in place so dependents see the
// replacement without rewiring (the hot-reload path).
func (m *Manager) InstallTexture(id AssetId, texture gpu.Texture) error {
	m.textures.install(id, texture)
	m.textureDirty.markDirty()
	return nil
}

func (m *Manager) InstallMesh(id AssetId, mesh gpu.Mesh) error {
	m.meshes.install(id, mesh)
	return nil
}

// InstallScript takes ownership of data by copy and drives the asset
// straight to Loaded since scripts have no GPU stage (spec.md §4.2).
func (m *Manager) InstallScript(id AssetId, data []byte) error {
	cp := append([]byte(nil), data...)
	m.scripts.install(id, cp)
	if err := m.registry.MarkStaged(id, uint64(len(data))); err != nil {
		return err
	}
	return m.registry.MarkLoaded(id)
}

// RebuildTextureDescriptorArray recomputes the descriptor slice from
// the current texture slot table. It only does work if the caller wins
// the dirty/updating claim; otherwise it's a no-op (another rebuilder
// already owns the in-flight rebuild, or nothing changed).
func (m *Manager) RebuildTextureDescriptorArray() ([]gpu.Texture, bool) {
	if !m.textureDirty.tryClaim() {
		return m.TextureDescriptorArray(), false
	}
	defer m.textureDirty.publish()

	snapshot := m.textures.all()
	m.descriptorMu.Lock()
	m.descriptorArray = snapshot
	m.descriptorMu.Unlock()
	return snapshot, true
}

// TextureDescriptorArray returns the current published snapshot,
// read-only until the next rebuild.
func (m *Manager) TextureDescriptorArray() []gpu.Texture {
	m.descriptorMu.RLock()
	defer m.descriptorMu.RUnlock()
	return append([]gpu.Texture(nil), m.descriptorArray...)
}
