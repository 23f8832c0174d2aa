// Package shadercompiler defines the "compile GLSL/HLSL to SPIR-V"
// contract spec.md §6 treats as an external collaborator, and a
// concrete implementation that shells out to glslc the same way the
// teacher's magefiles/build.go build-time shader task already did.
package shadercompiler

import "fmt"

// TargetEnv names the compile target environment.
type TargetEnv int

const (
	TargetVulkan1_0 TargetEnv = iota
	TargetVulkan1_1
	TargetVulkan1_2
	TargetVulkan1_3
)

func (t TargetEnv) glslcFlag() string {
	switch t {
	case TargetVulkan1_1:
		return "vulkan1.1"
	case TargetVulkan1_2:
		return "vulkan1.2"
	case TargetVulkan1_3:
		return "vulkan1.3"
	default:
		return "vulkan1.0"
	}
}

// Options mirrors spec.md §4.4 step 4: "target = Vulkan, no optimization,
// debug info on, Vulkan semantics on" is the fixed configuration the
// shader hot-reload path always compiles with, but Options is exposed so
// a non-hot-reload caller (e.g. a future asset-baking CLI) can ask for
// optimized, release-mode output.
type Options struct {
	Target          TargetEnv
	Optimize        bool
	DebugInfo       bool
	VulkanSemantics bool
}

// DefaultHotReloadOptions is exactly the fixed configuration spec.md
// §4.4 step 4 requires for the shader hot-reload path.
func DefaultHotReloadOptions() Options {
	return Options{
		Target:          TargetVulkan1_0,
		Optimize:        false,
		DebugInfo:       true,
		VulkanSemantics: true,
	}
}

// Compiler compiles a shader source file to a SPIR-V blob.
type Compiler interface {
	CompileFile(path string, opts Options) ([]byte, error)
}

// ErrCompile wraps a compiler failure with the source path.
func ErrCompile(path string, err error) error {
	return fmt.Errorf("shadercompiler: %s: %w", path, err)
}
