package assets

import (
	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/decode"
)

// textureStaging is the short-lived handoff record between the I/O
// worker and the GPU worker for a texture load (spec.md §3, "staging
// records... include a load-duration measurement for statistics").
// Owned exclusively by the Loader; never observed by the Manager or
// Registry. clock was started when the I/O stage began and is read at
// GPU-stage completion to produce that measurement.
type textureStaging struct {
	id    AssetId
	image decode.Image
	clock *core.Clock
	trace string
}

// meshStaging is the analogous handoff record for a mesh load.
type meshStaging struct {
	id    AssetId
	path  string
	model decode.Model
	clock *core.Clock
	trace string
}
