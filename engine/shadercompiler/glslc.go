package shadercompiler

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Glslc compiles shader source by invoking the glslc binary, the same
// tool the teacher's magefiles/build.go shelled out to for build-time
// shader compilation. Binary defaults to "glslc" (resolved via PATH);
// set it explicitly to point at a Vulkan SDK install.
type Glslc struct {
	Binary string
}

func NewGlslc() *Glslc {
	return &Glslc{Binary: "glslc"}
}

func stageFlag(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path)))) {
	case ".vert":
		return "vertex", nil
	case ".frag":
		return "fragment", nil
	case ".comp":
		return "compute", nil
	case ".geom":
		return "geometry", nil
	case ".tesc":
		return "tesscontrol", nil
	case ".tese":
		return "tesseval", nil
	}
	// Fall back to the file's final extension directly (e.g. "shader.vert"
	// rather than "shader.vert.glsl").
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert":
		return "vertex", nil
	case ".frag":
		return "fragment", nil
	case ".comp":
		return "compute", nil
	case ".geom":
		return "geometry", nil
	case ".tesc":
		return "tesscontrol", nil
	case ".tese":
		return "tesseval", nil
	}
	return "", fmt.Errorf("shadercompiler: cannot infer shader stage from %q", path)
}

func (g *Glslc) CompileFile(path string, opts Options) ([]byte, error) {
	stage, err := stageFlag(path)
	if err != nil {
		return nil, ErrCompile(path, err)
	}

	out, err := os.CreateTemp("", "shader-*.spv")
	if err != nil {
		return nil, ErrCompile(path, err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	args := []string{
		fmt.Sprintf("-fshader-stage=%s", stage),
		fmt.Sprintf("--target-env=%s", opts.Target.glslcFlag()),
		path,
		"-o", outPath,
	}
	if opts.Optimize {
		args = append(args, "-O")
	} else {
		args = append(args, "-O0")
	}
	if opts.DebugInfo {
		args = append(args, "-g")
	}
	if !opts.VulkanSemantics {
		args = append(args, "-fauto-map-locations")
	}

	binary := g.Binary
	if binary == "" {
		binary = "glslc"
	}

	cmd := exec.Command(binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, ErrCompile(path, fmt.Errorf("%w: %s", err, stderr.String()))
	}

	blob, err := os.ReadFile(outPath)
	if err != nil {
		return nil, ErrCompile(path, err)
	}
	return blob, nil
}
