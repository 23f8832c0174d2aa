// Package gpu defines the graphics-context contract the asset pipeline
// consumes (spec.md §6). The real implementation would own a Vulkan
// device, queues, command pools and an allocator — all explicitly out of
// scope for this core (spec.md §1). Context is the seam: the Loader's
// GPU-worker stage only ever calls through this interface, never a
// concrete graphics library.
package gpu

import "fmt"

// PixelFormat names the format a texture's bytes are assumed to already
// be in; spec.md §4.2 fixes this to RGBA8 for the texture staging path.
type PixelFormat int

const (
	PixelFormatRGBA8 PixelFormat = iota
)

// Texture is an opaque handle to a GPU-resident image. Callers compare
// and copy it by value; only a Context implementation may inspect its
// contents.
type Texture interface {
	Width() int
	Height() int
}

// Mesh is an opaque handle to a GPU-resident model, potentially composed
// of several sub-meshes (spec.md §3, "mesh staging ... potentially
// multi-mesh").
type Mesh interface {
	SubmeshCount() int
}

// Buffer is an opaque handle to host-visible storage, used by the
// Manager's material uniform buffer.
type Buffer interface {
	Size() int
}

// Context is the graphics backend contract. Every method may fail;
// failure is reported as a plain error, never a panic, since a failed GPU
// construction is a normal (if unhappy) outcome for the Loader's
// GPU-worker stage (spec.md §7, GpuConstructFailure).
type Context interface {
	// CreateTexture builds a GPU-visible texture from decoded pixel
	// bytes. width*height*bytesPerPixel(format) must equal len(pixels).
	CreateTexture(pixels []byte, width, height int, format PixelFormat) (Texture, error)
	DestroyTexture(Texture) error
	// ResizeTexture only applies to writeable textures (Manager-created
	// render targets); resident asset textures are never resized in
	// place, they're replaced wholesale by a hot reload.
	ResizeTexture(t Texture, width, height int) (Texture, error)

	// CreateMesh builds one or more GPU-resident submeshes from an
	// already-decoded model.
	CreateMesh(model MeshSource) (Mesh, error)
	DestroyMesh(Mesh) error

	AllocateBuffer(size int) (Buffer, error)
	WriteBuffer(b Buffer, offset int, data []byte) error
	FreeBuffer(Buffer) error
}

// MeshSource is the decoded, CPU-side representation the Loader hands to
// Context.CreateMesh — the output of engine/decode.MeshDecoder.
type MeshSource interface {
	SubmeshCount() int
}

// ErrContext wraps a Context failure with the operation name, so callers
// can log a stable message regardless of backend.
func ErrContext(op string, err error) error {
	return fmt.Errorf("gpu: %s: %w", op, err)
}
