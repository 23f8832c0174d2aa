package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Kinubi/zephyr-assets/engine/config"
	"github.com/Kinubi/zephyr-assets/engine/gpu"
	"github.com/Kinubi/zephyr-assets/engine/threadpool"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()

	textures := []string{"missing.png", "loading.png", "failed.png", "default.png"}
	for _, name := range textures {
		writeTempAsset(t, dir, name, []byte("placeholder-bytes"))
	}

	registry := NewRegistry()
	manager := NewManager(registry, gpu.NewSoftware())
	loader := NewLoader(registry, &synchronousPool{}, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, manager, dir)
	manager.SetLoader(loader)

	if err := manager.Bootstrap(config.FallbackPaths{
		MissingTexture: "missing.png",
		LoadingTexture: "loading.png",
		FailedTexture:  "failed.png",
		DefaultTexture: "default.png",
	}); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return manager, dir
}

func TestBootstrapInstallsReservedWhitePixelAtSlotZero(t *testing.T) {
	manager, _ := newTestManager(t)

	whiteID, ok := manager.registry.LookupByPath(whiteTexturePath)
	if !ok {
		t.Fatal("expected reserved white pixel interned")
	}
	slot, ok := manager.textures.slotOf(whiteID.ID)
	if !ok || slot != 0 {
		t.Fatalf("expected white pixel at slot 0, got slot=%d ok=%v", slot, ok)
	}
}

func TestBootstrapLoadsFallbackFamily(t *testing.T) {
	manager, _ := newTestManager(t)

	if manager.fallback.MissingTexture == InvalidAssetID {
		t.Fatal("expected missing texture fallback to load")
	}
	if manager.fallback.LoadingTexture == InvalidAssetID {
		t.Fatal("expected loading texture fallback to load")
	}
	if manager.fallback.CubeMesh == InvalidAssetID {
		t.Fatal("expected fallback cube mesh installed")
	}
	meta, _ := manager.registry.LookupByID(manager.fallback.CubeMesh)
	if meta.State != StateLoaded {
		t.Fatalf("expected cube fallback Loaded, got %s", meta.State)
	}
}

func TestResolveForRenderingFallsBackDuringLoad(t *testing.T) {
	manager, dir := newTestManager(t)
	writeTempAsset(t, dir, "brick.png", []byte("brick-bytes"))

	id, err := manager.registry.Intern("brick.png", KindTexture)
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if !manager.registry.TryBeginLoading(id) {
		t.Fatal("expected to claim loading")
	}

	resolved := manager.ResolveForRendering(id)
	if resolved != manager.fallback.LoadingTexture {
		t.Fatalf("expected loading placeholder, got %d (loading placeholder is %d)", resolved, manager.fallback.LoadingTexture)
	}

	manager.registry.MarkStaged(id, 10)
	manager.registry.MarkLoaded(id)

	resolved = manager.ResolveForRendering(id)
	if resolved != id {
		t.Fatalf("expected original id once Loaded, got %d want %d", resolved, id)
	}
}

func TestResolveForRenderingNeverCrossesKind(t *testing.T) {
	manager, _ := newTestManager(t)

	meshID, _ := manager.registry.Intern("some.obj", KindMesh)
	resolved := manager.ResolveForRendering(meshID)

	meta, _ := manager.registry.LookupByID(resolved)
	if meta.Kind != KindMesh {
		t.Fatalf("resolved id has kind %s, want mesh", meta.Kind)
	}
}

func TestFailedLoadSurfacesFailedPlaceholder(t *testing.T) {
	manager, dir := newTestManager(t)
	_ = dir

	id, _ := manager.registry.Intern("does-not-exist.png", KindTexture)
	if err := manager.loader.Request(id, threadpool.PriorityNormal); err != nil {
		t.Fatalf("Request: %v", err)
	}

	meta, _ := manager.registry.LookupByID(id)
	if meta.State != StateFailed {
		t.Fatalf("expected Failed, got %s", meta.State)
	}

	resolved := manager.ResolveForRendering(id)
	if resolved != manager.fallback.FailedTexture {
		t.Fatalf("expected failed placeholder, got %d want %d", resolved, manager.fallback.FailedTexture)
	}

	tex, ok := manager.GetTexture(id)
	if !ok {
		t.Fatal("expected GetTexture to fall back to missing texture rather than report absent")
	}
	missingTex, _ := manager.GetTexture(manager.fallback.MissingTexture)
	if tex != missingTex {
		t.Fatal("expected failed-load GetTexture to resolve to the missing fallback's texture")
	}
}

func TestHotReloadReplacesSlotInPlace(t *testing.T) {
	manager, dir := newTestManager(t)
	writeTempAsset(t, dir, "brick.png", []byte("version-1"))

	firstID, err := manager.LoadAsync("brick.png", KindTexture, threadpool.PriorityNormal)
	if err != nil {
		t.Fatalf("LoadAsync: %v", err)
	}
	slot, ok := manager.textures.slotOf(firstID)
	if !ok {
		t.Fatal("expected a slot after first load")
	}

	if err := manager.registry.ForceUnload(firstID); err != nil {
		t.Fatalf("ForceUnload: %v", err)
	}
	writeTempAsset(t, dir, "brick.png", []byte("version-2-longer-content"))
	if err := manager.loader.Request(firstID, threadpool.PriorityHigh); err != nil {
		t.Fatalf("reload Request: %v", err)
	}

	meta, _ := manager.registry.LookupByID(firstID)
	if meta.State != StateLoaded {
		t.Fatalf("expected Loaded after reload, got %s", meta.State)
	}
	newSlot, ok := manager.textures.slotOf(firstID)
	if !ok || newSlot != slot {
		t.Fatalf("expected slot to stay %d, got %d", slot, newSlot)
	}
}

func TestRebuildTextureDescriptorArrayClaimSemantics(t *testing.T) {
	manager, dir := newTestManager(t)
	writeTempAsset(t, dir, "brick.png", []byte("data"))

	manager.LoadAsync("brick.png", KindTexture, threadpool.PriorityNormal)

	if !manager.textureDirty.isDirty() {
		t.Fatal("expected texture_descriptors_dirty to be set after an install")
	}

	arr, claimed := manager.RebuildTextureDescriptorArray()
	if !claimed {
		t.Fatal("expected first rebuild to claim the dirty flag")
	}
	if len(arr) != manager.textures.len() {
		t.Fatalf("expected descriptor array length %d to match slot table length %d", len(arr), manager.textures.len())
	}
	if manager.textureDirty.isDirty() || manager.textureDirty.isUpdating() {
		t.Fatal("expected both flags clear after publish")
	}

	_, claimedAgain := manager.RebuildTextureDescriptorArray()
	if claimedAgain {
		t.Fatal("expected a second rebuild with nothing dirty to be a no-op")
	}
}

func TestCreateMaterialDeduplicatesByContent(t *testing.T) {
	manager, _ := newTestManager(t)

	texA, _ := manager.registry.Intern("tex_a.png", KindTexture)
	texB, _ := manager.registry.Intern("tex_b.png", KindTexture)
	params := MaterialParams{
		TextureA:  texA,
		TextureB:  texB,
		Color:     [4]float32{1, 1, 1, 1},
		Roughness: 0.5,
	}

	id1, err := manager.CreateMaterial(params)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	before := manager.materials.len()

	id2, err := manager.CreateMaterial(params)
	if err != nil {
		t.Fatalf("CreateMaterial (second): %v", err)
	}
	after := manager.materials.len()

	if id1 != id2 {
		t.Fatalf("expected same material id, got %d and %d", id1, id2)
	}
	if after != before {
		t.Fatalf("expected materials slot count unchanged, went from %d to %d", before, after)
	}

	texMeta, _ := manager.registry.LookupByID(texA)
	if !containsID(texMeta.Dependents, id1) {
		t.Fatal("expected texture to list material as dependent")
	}
}

func TestCreateMaterialDistinguishesDifferingParams(t *testing.T) {
	manager, _ := newTestManager(t)

	base := MaterialParams{Color: [4]float32{1, 1, 1, 1}, Roughness: 0.5}
	variant := base
	variant.Metallic = 0.9

	id1, _ := manager.CreateMaterial(base)
	id2, _ := manager.CreateMaterial(variant)
	if id1 == id2 {
		t.Fatal("expected differing Metallic to produce distinct material ids")
	}
}

func TestFallbackPathsWithMissingFileAreNonFatal(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	manager := NewManager(registry, gpu.NewSoftware())
	loader := NewLoader(registry, &synchronousPool{}, gpu.NewSoftware(), fakeImageDecoder{}, fakeMeshDecoder{}, manager, dir)
	manager.SetLoader(loader)

	if err := manager.Bootstrap(config.FallbackPaths{
		MissingTexture: "does-not-exist.png",
	}); err != nil {
		t.Fatalf("Bootstrap should tolerate a missing fallback file, got: %v", err)
	}
	if manager.fallback.MissingTexture != InvalidAssetID {
		t.Fatal("expected missing-fallback slot to stay unset when the file doesn't exist")
	}
}

func ensureFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected fixture at %s: %v", path, err)
	}
}

func TestFixturesWrittenToDisk(t *testing.T) {
	_, dir := newTestManager(t)
	ensureFileExists(t, filepath.Join(dir, "missing.png"))
}
