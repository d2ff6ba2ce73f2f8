package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/dotnet-host/config"
	"github.com/wippyai/dotnet-host/errors"
	"github.com/wippyai/dotnet-host/handle"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// emptyModule has no imports or exports.
var emptyModule = wasmHeader

// memoryModule exports one page of memory and nothing else.
var memoryModule = concat(wasmHeader,
	[]byte{0x05, 0x03, 0x01, 0x00, 0x01},
	[]byte{0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00},
)

// mallocModule exports memory and malloc(size i32) i32 returning ret.
func mallocModule(ret byte) []byte {
	body := []byte{0x00, 0x41, ret, 0x0b}
	if ret == 0x80 {
		// i32.const 1024
		body = []byte{0x00, 0x41, 0x80, 0x08, 0x0b}
	}
	code := append([]byte{0x0a, byte(len(body) + 2), 0x01, byte(len(body))}, body...)
	return concat(wasmHeader,
		[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f},
		[]byte{0x03, 0x02, 0x01, 0x00},
		[]byte{0x05, 0x03, 0x01, 0x00, 0x01},
		[]byte{0x07, 0x13, 0x02,
			0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
			0x06, 'm', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00},
		code,
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func mustConfig(t *testing.T, raw *config.RawConfig) *config.Config {
	t.Helper()
	cfg, err := config.Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func serve(files map[string]string) Option {
	return WithFetchFunc(func(_ context.Context, location string) ([]byte, error) {
		data, ok := files[location]
		if !ok {
			return nil, fmt.Errorf("%s: %w", location, os.ErrNotExist)
		}
		return []byte(data), nil
	})
}

func TestVirtualPath(t *testing.T) {
	cfg := mustConfig(t, &config.RawConfig{
		AssemblyRoot: "managed",
		Assets: []config.RawAsset{
			{Name: "app.dll", Behavior: "assembly"},
			{Name: "app.resources.dll", Behavior: "resource", Culture: "de"},
			{Name: "icudt.dat", Behavior: "icu"},
			{Name: "data.txt", Behavior: "vfs", VirtualPath: "etc/data.txt"},
			{Name: "lib.dll", Behavior: "assembly", VirtualPath: "/custom/lib.dll"},
		},
	})

	var got []string
	for _, a := range cfg.Assets() {
		got = append(got, VirtualPath(cfg, a))
	}
	want := []string{
		"/managed/app.dll",
		"/managed/de/app.resources.dll",
		"/usr/share/icu/icudt.dat",
		"/etc/data.txt",
		"/custom/lib.dll",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("virtual paths (-want +got):\n%s", diff)
	}
}

func TestEnvironment(t *testing.T) {
	level := 2
	cfg := mustConfig(t, &config.RawConfig{
		DebugLevel:           &level,
		Assets:               []config.RawAsset{{Name: "icudt.dat", Behavior: "icu"}},
		EnvironmentVariables: map[string]string{"TZ": "UTC", EnvGlobalizationInvariant: "1"},
	})

	want := map[string]string{
		EnvGlobalizationInvariant: "1",
		EnvDebugLevel:             "2",
		"TZ":                      "UTC",
	}
	if diff := cmp.Diff(want, Environment(cfg)); diff != "" {
		t.Fatalf("environment (-want +got):\n%s", diff)
	}

	plain := mustConfig(t, &config.RawConfig{Assets: []config.RawAsset{}})
	if diff := cmp.Diff(map[string]string{EnvGlobalizationInvariant: "true"}, Environment(plain)); diff != "" {
		t.Fatalf("default environment (-want +got):\n%s", diff)
	}
}

func TestBoot_MountsAssets(t *testing.T) {
	ctx := context.Background()
	cfg := mustConfig(t, &config.RawConfig{
		AssemblyRoot:   "managed",
		RuntimeOptions: []string{"--interp"},
		Assets: []config.RawAsset{
			{Name: "app.dll", Behavior: "assembly"},
			{Name: "app.resources.dll", Behavior: "resource", Culture: "fr"},
			{Name: "data.txt", Behavior: "vfs", VirtualPath: "/etc/data.txt"},
			{Name: "missing.txt", Behavior: "vfs", VirtualPath: "/etc/missing.txt", IsOptional: true},
		},
	})

	var booted *Runtime
	rt, err := Boot(ctx, cfg, emptyModule,
		serve(map[string]string{
			"managed/app.dll":              "MZ",
			"managed/fr/app.resources.dll": "RES",
			"data.txt":                     "hello",
		}),
		WithOnLoaded(func(r *Runtime) { booted = r }),
	)
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer rt.Close(ctx)

	if booted != rt {
		t.Error("OnLoaded not called with the runtime")
	}

	for p, want := range map[string]string{
		"managed/app.dll":              "MZ",
		"managed/fr/app.resources.dll": "RES",
		"etc/data.txt":                 "hello",
	} {
		got, err := fs.ReadFile(rt.FS(), p)
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v", p, got, err)
		}
	}
	if _, err := fs.Stat(rt.FS(), "etc/missing.txt"); !stderrors.Is(err, fs.ErrNotExist) {
		t.Errorf("optional asset mounted: %v", err)
	}

	entries, err := fs.ReadDir(rt.FS(), "managed")
	if err != nil {
		t.Fatalf("ReadDir managed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if diff := cmp.Diff([]string{"app.dll", "fr"}, names); diff != "" {
		t.Errorf("managed entries (-want +got):\n%s", diff)
	}
	if info, err := fs.Stat(rt.FS(), "managed/fr"); err != nil || !info.IsDir() {
		t.Errorf("culture directory = %v, %v", info, err)
	}

	if diff := cmp.Diff([]string{"managed/app.dll", "managed/fr/app.resources.dll", "data.txt"}, rt.LoadedFiles()); diff != "" {
		t.Errorf("loaded files (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"missing.txt"}, rt.SkippedAssets()); diff != "" {
		t.Errorf("skipped (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{ModuleName, "--interp"}, rt.Args()); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
	if rt.Memory() != nil || rt.Allocator() != nil {
		t.Error("module without exports should have no memory or allocator")
	}
}

func TestBoot_HeapAsset(t *testing.T) {
	ctx := context.Background()
	cfg := mustConfig(t, &config.RawConfig{
		Assets: []config.RawAsset{{Name: "blob.bin", Behavior: "heap"}},
	})

	rt, err := Boot(ctx, cfg, mallocModule(0x80), serve(map[string]string{"blob.bin": "hello\x00"}))
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer rt.Close(ctx)

	heap := rt.Heap()
	if len(heap) != 1 {
		t.Fatalf("heap blocks = %d", len(heap))
	}
	b := heap[0]
	if b.Name != "blob.bin" || b.Ptr != handle.VoidPtr(1024) || b.Size != 6 {
		t.Errorf("block = %+v", b)
	}
	if !b.Handle.Valid() {
		t.Errorf("block handle = %d", b.Handle)
	}
	if v, ok := rt.Handles().Get(b.Handle); !ok || v.(HeapBlock).Ptr != b.Ptr {
		t.Errorf("handle table lookup = %v, %v", v, ok)
	}

	s, err := rt.Memory().ReadCString(handle.CharPtr(b.Ptr))
	if err != nil || s != "hello" {
		t.Errorf("ReadCString = %q, %v", s, err)
	}

	if _, err := fs.Stat(rt.FS(), "blob.bin"); err == nil {
		t.Error("heap asset should not be mounted")
	}
}

func TestAllocator_OutlivesBootContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := mustConfig(t, &config.RawConfig{
		Assets: []config.RawAsset{{Name: "blob.bin", Behavior: "heap"}},
	})

	rt, err := Boot(ctx, cfg, mallocModule(0x80), serve(map[string]string{"blob.bin": "x"}))
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer rt.Close(context.Background())
	cancel()

	alloc := rt.Allocator()
	if alloc == nil {
		t.Fatal("expected allocator")
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := alloc.Alloc(16)
			if err != nil {
				errs <- err
				return
			}
			if p != handle.VoidPtr(1024) {
				errs <- fmt.Errorf("ptr = %d", p)
			}
			alloc.Free(p)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Alloc after Boot: %v", err)
	}
}

func TestBoot_HeapWithoutMalloc(t *testing.T) {
	cfg := mustConfig(t, &config.RawConfig{
		Assets: []config.RawAsset{{Name: "blob.bin", Behavior: "heap"}},
	})

	_, err := Boot(context.Background(), cfg, memoryModule, serve(map[string]string{"blob.bin": "x"}))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBoot, Kind: errors.KindUnsupported}) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestBoot_MallocReturnsNull(t *testing.T) {
	cfg := mustConfig(t, &config.RawConfig{
		Assets: []config.RawAsset{{Name: "blob.bin", Behavior: "heap"}},
	})

	_, err := Boot(context.Background(), cfg, mallocModule(0x00), serve(map[string]string{"blob.bin": "x"}))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBoot, Kind: errors.KindAllocation}) {
		t.Fatalf("expected allocation error, got %v", err)
	}
}

func TestBoot_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := mustConfig(t, &config.RawConfig{
		Assets: []config.RawAsset{{Name: "app.dll", Behavior: "assembly"}},
	})

	tests := []struct {
		name   string
		cfg    *config.Config
		module []byte
		kind   errors.Kind
		phase  errors.Phase
	}{
		{"nil config", nil, emptyModule, errors.KindNotInitialized, errors.PhaseBoot},
		{"empty module", cfg, nil, errors.KindInvalidInput, errors.PhaseBoot},
		{"missing assembly", cfg, emptyModule, errors.KindFetchFailed, errors.PhaseFetch},
		{"invalid module", mustConfig(t, &config.RawConfig{Assets: []config.RawAsset{}}), []byte("not wasm"), errors.KindInvalidData, errors.PhaseBoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Boot(ctx, tt.cfg, tt.module, serve(nil))
			if !stderrors.Is(err, &errors.Error{Phase: tt.phase, Kind: tt.kind}) {
				t.Fatalf("expected %s/%s, got %v", tt.phase, tt.kind, err)
			}
		})
	}
}
