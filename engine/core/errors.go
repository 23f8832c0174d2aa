package core

import (
	"errors"
)

// Sentinel error kinds shared across the registry, loader and manager.
// Callers compare with errors.Is; the concrete error returned usually wraps
// one of these alongside the asset path or id involved.
var (
	// ErrNotFound is returned when an asset id has no metadata. A backing
	// file that does not exist surfaces as ErrReadFailure instead.
	ErrNotFound = errors.New("asset: not found")
	// ErrUnsupportedKind is returned when a file extension does not map to
	// any known decoder.
	ErrUnsupportedKind = errors.New("asset: unsupported asset type")
	// ErrReadFailure wraps any I/O error encountered while staging bytes,
	// including the soft size-cap violation.
	ErrReadFailure = errors.New("asset: read failure")
	// ErrDecodeFailure is returned when an image/mesh decoder rejects bytes.
	ErrDecodeFailure = errors.New("asset: decode failure")
	// ErrGpuConstruct is returned when the graphics context fails to build
	// a GPU-visible resource from staged bytes.
	ErrGpuConstruct = errors.New("asset: gpu construct failure")
	// ErrStateViolation marks an illegal lifecycle transition attempt. It
	// is a programmer error, never a recoverable runtime condition.
	ErrStateViolation = errors.New("asset: illegal state transition")
	// ErrCompileFailure names a shader compile failure. Nothing returns it
	// at present: the shader hot-reload path logs the compiler's own error
	// (wrapped by shadercompiler.ErrCompile) and clears the in-progress
	// flag so the next file event retries.
	ErrCompileFailure = errors.New("asset: shader compile failure")
)
