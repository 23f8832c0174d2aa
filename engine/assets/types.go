package assets

import "time"

// AssetId is an opaque, process-unique handle. Cross-component code
// refers to residents by id only, never by pointer (spec.md §9, "Opaque
// handles over pointers") — replacement-in-place during hot reload and
// fallback-to-real upgrade would be unsafe with raw pointers exposed.
type AssetId uint64

// InvalidAssetID is the reserved sentinel denoting "no asset".
const InvalidAssetID AssetId = ^AssetId(0)

// AssetKind is the closed enumeration of loadable artifact kinds
// (spec.md §3). Fixed at intern time; never changes for a given id.
type AssetKind int

const (
	KindTexture AssetKind = iota
	KindMesh
	KindMaterial
	KindShader
	KindScript
	KindAudio
	KindScene
	KindAnimation
	numKinds
)

func (k AssetKind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindMesh:
		return "mesh"
	case KindMaterial:
		return "material"
	case KindShader:
		return "shader"
	case KindScript:
		return "script"
	case KindAudio:
		return "audio"
	case KindScene:
		return "scene"
	case KindAnimation:
		return "animation"
	default:
		return "unknown"
	}
}

// AssetState is the closed lifecycle state machine (spec.md §3):
//
//	Unloaded -> Loading -> Staged -> Loaded
//	       \-> Failed (from Loading or Staged)
//	Loaded -> Unloaded (hot-reload invalidation only)
type AssetState int

const (
	StateUnloaded AssetState = iota
	StateLoading
	StateStaged
	StateLoaded
	StateFailed
)

func (s AssetState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateStaged:
		return "staged"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AssetMetadata is the per-asset record the Registry owns. Values
// returned from Registry lookups are snapshots: mutating the returned
// struct has no effect on the Registry's internal state, which can only
// be changed through Registry methods (spec.md §3 invariant: "Lifecycle
// transitions happen only at the Registry API boundary").
type AssetMetadata struct {
	ID   AssetId
	Kind AssetKind
	Path string

	State AssetState

	ByteSize uint64

	Dependencies []AssetId
	Dependents   []AssetId

	RefCount uint32

	LastLoaded time.Time
	LastError  string
}
