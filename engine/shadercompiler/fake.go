package shadercompiler

import "sync"

// Fake is a test double for Compiler: it never shells out, just returns a
// canned SPIR-V-shaped byte blob (or a configured error) so the shader
// hot-reload path can be exercised without a Vulkan SDK installed.
type Fake struct {
	mu      sync.Mutex
	FailFor map[string]error
	calls   []string
}

func NewFake() *Fake {
	return &Fake{FailFor: make(map[string]error)}
}

func (f *Fake) CompileFile(path string, opts Options) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	err, shouldFail := f.FailFor[path]
	f.mu.Unlock()

	if shouldFail {
		return nil, ErrCompile(path, err)
	}
	// A nonempty, recognizable placeholder "blob" — real SPIR-V starts
	// with a magic number; callers here only need "nonempty".
	return []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}, nil
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
