package assets

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
)

// materialBufferRecordSize is the packed byte layout of one material's
// GPU-visible uniform record: Color (4 float32) + Roughness + Metallic +
// Emissive (3 float32) + TextureA/TextureB slot indices (2 uint32).
const materialBufferRecordSize = 4*4 + 3*4 + 2*4

// retiredBuffer pairs a superseded material buffer with the generation
// counter value active when it was retired. Spec.md §5: "a generational
// retire list holds superseded GPU buffers so in-flight frames can still
// read the old one until their fences retire them" — freeing happens
// only once the caller (which owns fence/frame tracking, out of scope
// here) reports that generation as safe to reclaim.
type retiredBuffer struct {
	buffer     gpu.Buffer
	generation uint64
}

// materialBuffer owns the single host-visible storage buffer the
// Manager publishes material records into, under its own lock separate
// from the materials slot table's lock (spec.md §5: "Material buffer:
// separate lock").
type materialBuffer struct {
	mu         sync.Mutex
	current    gpu.Buffer
	generation uint64
	retired    []retiredBuffer
}

func encodeMaterialRecord(buf []byte, rec materialRecord, textureSlot func(AssetId) int) {
	p := rec.params
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Color[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Color[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.Color[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.Color[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(p.Roughness))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(p.Metallic))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(p.Emissive))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(textureSlot(p.TextureA)))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(textureSlot(p.TextureB)))
}

// RebuildMaterialBuffer recomputes the material uniform buffer from the
// current material slot table, following the same dirty/updating claim
// pattern as RebuildTextureDescriptorArray (spec.md §4.3: "the guarded
// pattern uniformly" resolves Open Question #3). The superseded buffer,
// if any, is pushed onto the retire list rather than freed immediately.
func (m *Manager) RebuildMaterialBuffer() (gpu.Buffer, bool) {
	if !m.materialDirty.tryClaim() {
		return m.materialBuf.snapshot(), false
	}
	defer m.materialDirty.publish()

	records := m.materials.all()
	data := make([]byte, len(records)*materialBufferRecordSize)
	for i, rec := range records {
		encodeMaterialRecord(
			data[i*materialBufferRecordSize:(i+1)*materialBufferRecordSize],
			rec,
			func(id AssetId) int {
				if id == InvalidAssetID {
					return 0
				}
				if slot, ok := m.textures.slotOf(id); ok {
					return slot
				}
				return 0
			},
		)
	}

	buf, err := m.gpuCtx.AllocateBuffer(len(data))
	if err != nil {
		core.LogError("manager: RebuildMaterialBuffer: AllocateBuffer: %v", err)
		return m.materialBuf.snapshot(), false
	}
	if len(data) > 0 {
		if err := m.gpuCtx.WriteBuffer(buf, 0, data); err != nil {
			core.LogError("manager: RebuildMaterialBuffer: WriteBuffer: %v", err)
			return m.materialBuf.snapshot(), false
		}
	}

	m.materialBuf.publish(buf)
	return buf, true
}

func (b *materialBuffer) publish(next gpu.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.retired = append(b.retired, retiredBuffer{buffer: b.current, generation: b.generation})
	}
	b.current = next
	b.generation++
}

func (b *materialBuffer) snapshot() gpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// ReleaseRetiredMaterialBuffers frees every retired buffer whose
// generation is strictly older than safeGeneration — the generation the
// caller's fence tracking has confirmed no in-flight frame can still
// read (spec.md §5). Buffers from safeGeneration onward are left alone.
func (m *Manager) ReleaseRetiredMaterialBuffers(safeGeneration uint64) {
	m.materialBuf.mu.Lock()
	var keep []retiredBuffer
	var toFree []gpu.Buffer
	for _, rb := range m.materialBuf.retired {
		if rb.generation < safeGeneration {
			toFree = append(toFree, rb.buffer)
		} else {
			keep = append(keep, rb)
		}
	}
	m.materialBuf.retired = keep
	m.materialBuf.mu.Unlock()

	for _, buf := range toFree {
		if err := m.gpuCtx.FreeBuffer(buf); err != nil {
			core.LogError("manager: ReleaseRetiredMaterialBuffers: FreeBuffer: %v", err)
		}
	}
}
