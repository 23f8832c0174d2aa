// Package decode defines the image/mesh decoder contracts spec.md §1
// treats as external collaborators, "consumed as byte-slice -> resource
// operations". The Loader's I/O-worker stage calls through these
// interfaces; it never parses a format itself.
package decode

import "github.com/Kinubi/zephyr-assets/engine/gpu"

// Image is the CPU-side decoded result of an image file. It satisfies
// what gpu.Context.CreateTexture needs without depending on the gpu
// package's texture type.
type Image struct {
	Width, Height int
	ChannelCount  int
	Pixels        []byte
}

// HasTransparency reports whether any pixel's alpha channel is below
// full opacity, mirroring the teacher's
// engine/systems/texture.go TextureLoadJobStart transparency scan.
func (img Image) HasTransparency() bool {
	if img.ChannelCount < 4 {
		return false
	}
	for i := img.ChannelCount - 1; i < len(img.Pixels); i += img.ChannelCount {
		if img.Pixels[i] < 255 {
			return true
		}
	}
	return false
}

// ImageDecoder turns raw file bytes into decoded pixels.
type ImageDecoder interface {
	DecodeImage(path string, data []byte) (Image, error)
}

// Submesh is one drawable piece of a decoded model (a model may be
// "potentially multi-mesh", spec.md §3).
type Submesh struct {
	Name      string
	Positions []float32 // x,y,z triples
	Indices   []uint32
}

// Model is the CPU-side decoded result of a mesh source file, and
// implements gpu.MeshSource.
type Model struct {
	Submeshes []Submesh
}

func (m Model) SubmeshCount() int { return len(m.Submeshes) }

var _ gpu.MeshSource = Model{}

// MeshDecoder turns mesh source text (e.g. OBJ) into a decoded Model.
// sourcePath is passed alongside the text because some formats resolve
// sibling resources (materials, textures) relative to it.
type MeshDecoder interface {
	DecodeMesh(sourcePath string, source []byte) (Model, error)
}
