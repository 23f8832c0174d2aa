//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// buildShaders compiles the single fragment-shader fixture the shader
// hot-reload demo watches (cmd/assetpipeline reads it from
// assets/shaders/), the same glslc invocation shape the teacher's build
// task used for its builtin shader set, trimmed down to the one shader
// this module's demo actually needs.
func buildShaders() error {
	fmt.Println("Build shaders...")
	vkSDKPath := os.Getenv("VULKAN_SDK")
	glslc := "glslc"
	if vkSDKPath != "" {
		glslc = fmt.Sprintf("%s/bin/glslc", vkSDKPath)
	}
	if _, err := executeCmd(glslc, withArgs("-fshader-stage=frag", "assets/shaders/demo.frag.glsl", "-o", "assets/shaders/demo.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the fixture shader through glslc.
func (Build) Shaders() error {
	return buildShaders()
}
