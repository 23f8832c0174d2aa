package assets

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/Kinubi/zephyr-assets/engine/core"
)

// MaterialParams is the full set of inputs a material is built from.
// Every field participates in the synthetic path's content hash, so
// two materials differing only in, say, Metallic never collide
// (spec.md §9's flagged bit-cast bug is the thing this replaces).
type MaterialParams struct {
	TextureA, TextureB AssetId
	Color              [4]float32
	Roughness          float32
	Metallic           float32
	Emissive           float32
}

func (p MaterialParams) textureIDs() []AssetId {
	var ids []AssetId
	if p.TextureA != InvalidAssetID {
		ids = append(ids, p.TextureA)
	}
	if p.TextureB != InvalidAssetID {
		ids = append(ids, p.TextureB)
	}
	return ids
}

// contentHash is a full FNV-1a 64-bit hash over every parameter,
// canonically encoded, replacing the single-float bit-cast hash the
// source used (spec.md §9 Open Question: "treat this as a latent bug
// and specify a full content hash").
func (p MaterialParams) contentHash() uint64 {
	var buf [36]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.TextureA))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.TextureB))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(p.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(p.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(p.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(p.Color[3]))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(p.Roughness))

	h := fnv.New64a()
	h.Write(buf[:])
	var tail [8]byte
	binary.LittleEndian.PutUint32(tail[0:4], math.Float32bits(p.Metallic))
	binary.LittleEndian.PutUint32(tail[4:8], math.Float32bits(p.Emissive))
	h.Write(tail[:])
	return h.Sum64()
}

func (p MaterialParams) syntheticPath() string {
	return fmt.Sprintf("material://%016x", p.contentHash())
}

// materialRecord is the resident value stored in the Manager's material
// slot table.
type materialRecord struct {
	params MaterialParams
}

// CreateMaterial interns the material's synthetic path, so identical
// parameters dedupe at the interning step (spec.md §4.3). The Registry's
// Unloaded->Loading compare-and-swap is reused as the dedup boundary
// here too: only the caller that wins it actually installs a slot and
// dependency edges; every other caller (including a second call with
// identical parameters) just gets the same id back.
func (m *Manager) CreateMaterial(params MaterialParams) (AssetId, error) {
	path := params.syntheticPath()
	id, err := m.registry.Intern(path, KindMaterial)
	if err != nil {
		return InvalidAssetID, err
	}
	if !m.registry.TryBeginLoading(id) {
		return id, nil
	}

	m.materials.install(id, materialRecord{params: params})
	for _, texID := range params.textureIDs() {
		if err := m.registry.AddDependency(id, texID); err != nil {
			core.LogError("manager: CreateMaterial %d: AddDependency(%d): %v", id, texID, err)
		}
	}

	if err := m.registry.MarkStaged(id, 0); err != nil {
		return id, err
	}
	if err := m.registry.MarkLoaded(id); err != nil {
		return id, err
	}
	m.materialDirty.markDirty()
	return id, nil
}

// GetMaterial returns the parameters a material id was created with.
func (m *Manager) GetMaterial(id AssetId) (MaterialParams, bool) {
	rec, ok := m.materials.get(id)
	if !ok {
		return MaterialParams{}, false
	}
	return rec.params, true
}
