package decode

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/tga"
)

// StdImageDecoder decodes PNG/JPEG with the standard library and TGA with
// golang.org/x/image/tga, always returning RGBA8 pixels — the format the
// Loader's texture staging path assumes (spec.md §4.2).
type StdImageDecoder struct{}

func (StdImageDecoder) DecodeImage(path string, data []byte) (Image, error) {
	var img goimage.Image
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case ".tga":
		img, err = tga.Decode(bytes.NewReader(data))
	default:
		return Image{}, fmt.Errorf("decode: unsupported image extension %q", filepath.Ext(path))
	}
	if err != nil {
		return Image{}, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, w*h*4)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			pixels[idx+0] = byte(r >> 8)
			pixels[idx+1] = byte(g >> 8)
			pixels[idx+2] = byte(b >> 8)
			pixels[idx+3] = byte(a >> 8)
			idx += 4
		}
	}

	return Image{
		Width:        w,
		Height:       h,
		ChannelCount: 4,
		Pixels:       pixels,
	}, nil
}
