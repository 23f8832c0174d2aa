// Package config loads pipeline.toml, the asset pipeline's only
// configuration surface. engine/assets itself receives parsed values
// (FallbackPaths through Manager.Bootstrap, the asset base path through
// NewLoader) and never reads a file or an
// environment variable directly (spec.md §6: "no CLI surface, reads no
// environment variables, maintains no on-disk state").
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// SubsystemConfig mirrors spec.md §5's per-subsystem worker budget.
type SubsystemConfig struct {
	MinWorkers int `toml:"min_workers"`
	MaxWorkers int `toml:"max_workers"`
}

// FallbackPaths names the well-known files the Manager loads
// synchronously at startup (spec.md §4.5).
type FallbackPaths struct {
	MissingTexture string `toml:"missing_texture"`
	LoadingTexture string `toml:"loading_texture"`
	FailedTexture  string `toml:"failed_texture"`
	DefaultTexture string `toml:"default_texture"`
}

// ShaderHotReloadConfig configures the shader fast path's compiler
// binary, so a deployment can point at a non-PATH glslc. The compile
// options themselves are fixed (shadercompiler.DefaultHotReloadOptions)
// and are not configurable here.
type ShaderHotReloadConfig struct {
	GlslcBinary string `toml:"glslc_binary"`
}

// PipelineConfig is the root of pipeline.toml.
type PipelineConfig struct {
	AssetBasePath   string                     `toml:"asset_base_path"`
	Subsystems      map[string]SubsystemConfig `toml:"subsystems"`
	Fallbacks       FallbackPaths              `toml:"fallbacks"`
	ShaderHotReload ShaderHotReloadConfig      `toml:"shader_hot_reload"`
}

// Default returns the configuration the demo binary uses absent
// a pipeline.toml on disk: the exact worker budgets spec.md §5 names for
// asset_loading and gpu_work.
func Default() PipelineConfig {
	return PipelineConfig{
		AssetBasePath: "assets",
		Subsystems: map[string]SubsystemConfig{
			"asset_loading": {MinWorkers: 1, MaxWorkers: 6},
			"gpu_work":      {MinWorkers: 1, MaxWorkers: 4},
		},
		Fallbacks: FallbackPaths{
			MissingTexture: "textures/missing.png",
			LoadingTexture: "textures/loading.png",
			FailedTexture:  "textures/failed.png",
			DefaultTexture: "textures/default.png",
		},
		ShaderHotReload: ShaderHotReloadConfig{
			GlslcBinary: "glslc",
		},
	}
}

// Load reads and parses a pipeline.toml file, falling back to Default()
// for any subsystem the file doesn't mention.
func Load(path string) (PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
