package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// softwareTexture is a CPU-backed stand-in for a GPU texture. It keeps
// the decoded pixels around (a real backend would have already uploaded
// and freed them) purely so tests and the demo binary can inspect what
// was "uploaded".
type softwareTexture struct {
	id     uint64
	width  int
	height int
	format PixelFormat
	pixels []byte
}

func (t *softwareTexture) Width() int  { return t.width }
func (t *softwareTexture) Height() int { return t.height }

type softwareMesh struct {
	id        uint64
	submeshes int
}

func (m *softwareMesh) SubmeshCount() int { return m.submeshes }

type softwareBuffer struct {
	id   uint64
	data []byte
}

func (b *softwareBuffer) Size() int { return len(b.data) }

// Software is a reference Context implementation with no real GPU
// dependency. It exists so engine/assets is fully testable and runnable
// without a Vulkan device, matching the way the teacher's default
// textures were "created in code to eliminate asset dependencies"
// (engine/systems/texture.go TextureSystemCreateDefaultTextures) — here
// applied to the whole graphics-context seam rather than just the
// fallback textures.
type Software struct {
	nextID atomic.Uint64

	mu       sync.Mutex
	textures map[uint64]*softwareTexture
	meshes   map[uint64]*softwareMesh
	buffers  map[uint64]*softwareBuffer
}

func NewSoftware() *Software {
	return &Software{
		textures: make(map[uint64]*softwareTexture),
		meshes:   make(map[uint64]*softwareMesh),
		buffers:  make(map[uint64]*softwareBuffer),
	}
}

func bytesPerPixel(format PixelFormat) int {
	switch format {
	case PixelFormatRGBA8:
		return 4
	default:
		return 4
	}
}

func (s *Software) CreateTexture(pixels []byte, width, height int, format PixelFormat) (Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrContext("CreateTexture", fmt.Errorf("invalid dimensions %dx%d", width, height))
	}
	expected := width * height * bytesPerPixel(format)
	if len(pixels) < expected {
		return nil, ErrContext("CreateTexture", fmt.Errorf("expected at least %d bytes, got %d", expected, len(pixels)))
	}
	t := &softwareTexture{
		id:     s.nextID.Add(1),
		width:  width,
		height: height,
		format: format,
		pixels: pixels,
	}
	s.mu.Lock()
	s.textures[t.id] = t
	s.mu.Unlock()
	return t, nil
}

func (s *Software) DestroyTexture(t Texture) error {
	st, ok := t.(*softwareTexture)
	if !ok {
		return ErrContext("DestroyTexture", fmt.Errorf("not a software texture"))
	}
	s.mu.Lock()
	delete(s.textures, st.id)
	s.mu.Unlock()
	return nil
}

func (s *Software) ResizeTexture(t Texture, width, height int) (Texture, error) {
	st, ok := t.(*softwareTexture)
	if !ok {
		return nil, ErrContext("ResizeTexture", fmt.Errorf("not a software texture"))
	}
	resized := make([]byte, width*height*bytesPerPixel(st.format))
	return s.CreateTexture(resized, width, height, st.format)
}

func (s *Software) CreateMesh(model MeshSource) (Mesh, error) {
	if model == nil {
		return nil, ErrContext("CreateMesh", fmt.Errorf("nil model source"))
	}
	m := &softwareMesh{
		id:        s.nextID.Add(1),
		submeshes: model.SubmeshCount(),
	}
	if m.submeshes <= 0 {
		return nil, ErrContext("CreateMesh", fmt.Errorf("model has no submeshes"))
	}
	s.mu.Lock()
	s.meshes[m.id] = m
	s.mu.Unlock()
	return m, nil
}

func (s *Software) DestroyMesh(m Mesh) error {
	sm, ok := m.(*softwareMesh)
	if !ok {
		return ErrContext("DestroyMesh", fmt.Errorf("not a software mesh"))
	}
	s.mu.Lock()
	delete(s.meshes, sm.id)
	s.mu.Unlock()
	return nil
}

func (s *Software) AllocateBuffer(size int) (Buffer, error) {
	if size < 0 {
		return nil, ErrContext("AllocateBuffer", fmt.Errorf("negative size %d", size))
	}
	b := &softwareBuffer{id: s.nextID.Add(1), data: make([]byte, size)}
	s.mu.Lock()
	s.buffers[b.id] = b
	s.mu.Unlock()
	return b, nil
}

func (s *Software) WriteBuffer(buf Buffer, offset int, data []byte) error {
	sb, ok := buf.(*softwareBuffer)
	if !ok {
		return ErrContext("WriteBuffer", fmt.Errorf("not a software buffer"))
	}
	if offset < 0 || offset+len(data) > len(sb.data) {
		return ErrContext("WriteBuffer", fmt.Errorf("write out of bounds (offset=%d len=%d cap=%d)", offset, len(data), len(sb.data)))
	}
	copy(sb.data[offset:], data)
	return nil
}

func (s *Software) FreeBuffer(buf Buffer) error {
	sb, ok := buf.(*softwareBuffer)
	if !ok {
		return ErrContext("FreeBuffer", fmt.Errorf("not a software buffer"))
	}
	s.mu.Lock()
	delete(s.buffers, sb.id)
	s.mu.Unlock()
	return nil
}
