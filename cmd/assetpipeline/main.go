/*
assetpipeline wires the four asset subsystems together the way a real
renderer's startup code would, without a window or a live Vulkan device:
it boots the thread pool, the fallback set, the filesystem watchers, and
then submits a texture load so the pipeline's log output shows a
request moving through Loading -> Staged -> Loaded.
*/
package main

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kinubi/zephyr-assets/engine/assets"
	"github.com/Kinubi/zephyr-assets/engine/config"
	"github.com/Kinubi/zephyr-assets/engine/core"
	"github.com/Kinubi/zephyr-assets/engine/decode"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
	"github.com/Kinubi/zephyr-assets/engine/shadercompiler"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

// loggingPublisher stands in for the pipeline/material system
// (spec.md §6: out of scope, consumed through PipelinePublisher). It
// only logs what it would have hot-swapped.
type loggingPublisher struct{}

func (loggingPublisher) PublishShader(path string, spirv []byte) error {
	core.LogInfo("assetpipeline: pipeline system would publish %d bytes of SPIR-V for %s", len(spirv), path)
	return nil
}

func loadConfig() config.PipelineConfig {
	cfg, err := config.Load("pipeline.toml")
	if err != nil {
		core.LogWarn("assetpipeline: pipeline.toml not found or invalid (%v), using defaults", err)
		return config.Default()
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	pool := threadpool.New()
	registry := assets.NewRegistry()
	gpuCtx := gpu.NewSoftware()

	// Manager and Loader are mutually referential (spec.md §4.2/§4.3):
	// the Loader's GPU stage hands resources to the Manager, and the
	// Manager's Unloaded-state resolver asks the Loader to submit a
	// load. Manager is constructed first so it can be passed in as the
	// Loader's ResourceInstaller, then wired back with SetLoader.
	manager := assets.NewManager(registry, gpuCtx)
	loader := assets.NewLoader(registry, pool, gpuCtx, decode.StdImageDecoder{}, decode.ObjDecoder{}, manager, cfg.AssetBasePath)
	manager.SetLoader(loader)

	for name, sub := range cfg.Subsystems {
		kind := threadpool.WorkKindAssetLoading
		priority := threadpool.PriorityNormal
		if name == assets.SubsystemGPUWork {
			kind = threadpool.WorkKindGPU
			priority = threadpool.PriorityHigh
		}
		if err := pool.RegisterSubsystem(name, kind, sub.MinWorkers, sub.MaxWorkers, priority); err != nil {
			core.LogFatal("assetpipeline: registering subsystem %q: %v", name, err)
		}
	}

	if err := manager.Bootstrap(cfg.Fallbacks); err != nil {
		core.LogFatal("assetpipeline: bootstrap: %v", err)
	}

	notifier, err := assets.NewFsnotifyNotifier()
	if err != nil {
		core.LogFatal("assetpipeline: creating filesystem watcher: %v", err)
	}
	defer notifier.Close()

	hotReload, err := assets.NewHotReloadCoordinator(registry, loader, pool, notifier)
	if err != nil {
		core.LogFatal("assetpipeline: creating hot-reload coordinator: %v", err)
	}

	shaderNotifier, err := assets.NewFsnotifyNotifier()
	if err != nil {
		core.LogFatal("assetpipeline: creating shader filesystem watcher: %v", err)
	}
	defer shaderNotifier.Close()

	glslcBinary := cfg.ShaderHotReload.GlslcBinary
	if glslcBinary == "" {
		glslcBinary = "glslc"
	}
	var compiler shadercompiler.Compiler
	if _, err := exec.LookPath(glslcBinary); err != nil {
		// No glslc on this machine: demo mode still runs end-to-end with
		// a fake compiler rather than failing startup.
		core.LogWarn("assetpipeline: %q not found on PATH, using a fake compiler for the demo", glslcBinary)
		compiler = shadercompiler.NewFake()
	} else {
		compiler = &shadercompiler.Glslc{Binary: glslcBinary}
	}
	shaderHotReload, err := assets.NewShaderHotReloadCoordinator(pool, shaderNotifier, compiler, loggingPublisher{})
	if err != nil {
		core.LogFatal("assetpipeline: creating shader hot-reload coordinator: %v", err)
	}
	_ = hotReload

	demoShader := cfg.AssetBasePath + "/shaders/demo.frag.glsl"
	if err := shaderHotReload.Register(demoShader); err != nil {
		core.LogWarn("assetpipeline: registering %s for shader hot-reload: %v", demoShader, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	id, err := manager.LoadAsync("textures/demo.png", assets.KindTexture, threadpool.PriorityNormal)
	if err != nil {
		core.LogError("assetpipeline: LoadAsync(demo.png): %v", err)
	} else {
		core.LogInfo("assetpipeline: submitted demo texture load, id=%d", id)
	}

	go func() {
		<-sigCh
		core.LogInfo("assetpipeline: shutting down")
		pool.Shutdown()
		os.Exit(0)
	}()

	for {
		time.Sleep(time.Second)
		snap := loader.Stats().Snapshot()
		core.LogInfo("assetpipeline: stats requests=%d submitted=%d completed=%d failed=%d avg=%s",
			snap.TotalRequests, snap.Submitted, snap.Completed, snap.Failed, snap.AverageLoad)
	}
}
