package assets

import (
	"github.com/Kinubi/zephyr-assets/engine/config"
	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/decode"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
)

// FallbackSet is the fixed family of placeholder artifacts the Manager
// resolves to while a real asset is not yet Loaded (spec.md §4.5).
// Process-wide, effectively-immutable after Bootstrap; modeled as plain
// values owned by the Manager rather than package-level globals (spec.md
// §9, "Global placeholder state").
type FallbackSet struct {
	MissingTexture AssetId
	LoadingTexture AssetId
	FailedTexture  AssetId
	DefaultTexture AssetId
	CubeMesh       AssetId
}

const whiteTexturePath = "texture://reserved-white-pixel"
const cubeMeshPath = "mesh://fallback-cube"

func (m *Manager) bootstrapFallbacks(paths config.FallbackPaths) error {
	if err := m.installReservedWhitePixel(); err != nil {
		return err
	}

	load := func(path string) AssetId {
		if path == "" {
			return InvalidAssetID
		}
		id, err := m.loader.LoadSync(path, KindTexture)
		if err != nil {
			core.LogWarn("manager: fallback texture %q failed to load: %v", path, err)
			return InvalidAssetID
		}
		return id
	}

	m.fallback.MissingTexture = load(paths.MissingTexture)
	m.fallback.LoadingTexture = load(paths.LoadingTexture)
	m.fallback.FailedTexture = load(paths.FailedTexture)
	m.fallback.DefaultTexture = load(paths.DefaultTexture)

	cubeID, err := m.installFallbackCube()
	if err != nil {
		return err
	}
	m.fallback.CubeMesh = cubeID

	return nil
}

// installReservedWhitePixel guarantees slot 0 of the texture sequence
// is a 1x1 white pixel (spec.md §4.5), installed before any other
// texture so it lands in the allocator's first free slot.
func (m *Manager) installReservedWhitePixel() error {
	id, err := m.registry.Intern(whiteTexturePath, KindTexture)
	if err != nil {
		return err
	}
	if !m.registry.TryBeginLoading(id) {
		return nil
	}

	tex, err := m.gpuCtx.CreateTexture([]byte{255, 255, 255, 255}, 1, 1, gpu.PixelFormatRGBA8)
	if err != nil {
		m.registry.MarkFailed(id, err)
		return gpu.ErrContext("CreateTexture", err)
	}
	if err := m.registry.MarkStaged(id, 4); err != nil {
		return err
	}
	if err := m.InstallTexture(id, tex); err != nil {
		return err
	}
	return m.registry.MarkLoaded(id)
}

// installFallbackCube procedurally builds the single cube mesh used
// for every fallback-mesh role (spec.md §4.5). It never touches disk,
// so it bypasses the Loader's stage functions entirely.
func (m *Manager) installFallbackCube() (AssetId, error) {
	id, err := m.registry.Intern(cubeMeshPath, KindMesh)
	if err != nil {
		return InvalidAssetID, err
	}
	if !m.registry.TryBeginLoading(id) {
		return id, nil
	}

	model := proceduralCube()
	mesh, err := m.gpuCtx.CreateMesh(model)
	if err != nil {
		m.registry.MarkFailed(id, err)
		return id, gpu.ErrContext("CreateMesh", err)
	}
	if err := m.registry.MarkStaged(id, 0); err != nil {
		return id, err
	}
	if err := m.InstallMesh(id, mesh); err != nil {
		return id, err
	}
	if err := m.registry.MarkLoaded(id); err != nil {
		return id, err
	}
	return id, nil
}

// proceduralCube builds an axis-aligned unit cube, one submesh, 8
// vertices, 12 triangles.
func proceduralCube() decode.Model {
	positions := []float32{
		-0.5, -0.5, -0.5,
		0.5, -0.5, -0.5,
		0.5, 0.5, -0.5,
		-0.5, 0.5, -0.5,
		-0.5, -0.5, 0.5,
		0.5, -0.5, 0.5,
		0.5, 0.5, 0.5,
		-0.5, 0.5, 0.5,
	}
	indices := []uint32{
		0, 1, 2, 2, 3, 0, // back
		4, 6, 5, 6, 4, 7, // front
		0, 4, 5, 5, 1, 0, // bottom
		3, 2, 6, 6, 7, 3, // top
		1, 5, 6, 6, 2, 1, // right
		4, 0, 3, 3, 7, 4, // left
	}
	return decode.Model{
		Submeshes: []decode.Submesh{
			{Name: "cube", Positions: positions, Indices: indices},
		},
	}
}
