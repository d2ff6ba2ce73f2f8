package host

import (
	"context"
	stderrors "errors"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	dotnethost "github.com/wippyai/dotnet-host"
	"github.com/wippyai/dotnet-host/config"
	"github.com/wippyai/dotnet-host/errors"
	"github.com/wippyai/dotnet-host/handle"
	"github.com/wippyai/dotnet-host/loader"
)

const (
	// ModuleName is the name the runtime module is instantiated under.
	ModuleName = "dotnet"

	// ICUDataDir is where ICU assets are placed in the virtual filesystem.
	ICUDataDir = "/usr/share/icu"

	EnvGlobalizationInvariant = "DOTNET_SYSTEM_GLOBALIZATION_INVARIANT"
	EnvDebugLevel             = "MONO_DEBUG_LEVEL"
)

// HeapBlock is an asset copied into guest memory. Handle identifies the
// block in the runtime's handle table.
type HeapBlock struct {
	Name   string
	Ptr    handle.VoidPtr
	Size   uint32
	Handle handle.JSHandle
}

// Runtime is a booted runtime module.
type Runtime struct {
	cfg     *config.Config
	wrt     wazero.Runtime
	mod     api.Module
	mem     *guestMemory
	alloc   *mallocAllocator
	fs      afero.Fs
	handles *handle.Table
	logger  *zap.Logger
	env     map[string]string
	args    []string
	heap    []HeapBlock
	loaded  []string
	skipped []string
}

// Boot fetches the assets of cfg, prepares the virtual filesystem, copies
// heap assets into guest memory and runs module's start functions.
func Boot(ctx context.Context, cfg *config.Config, module []byte, opts ...Option) (*Runtime, error) {
	o := &options{
		logger:         Logger(),
		startFunctions: DefaultStartFunctions,
	}
	for _, opt := range opts {
		opt(o)
	}

	if cfg == nil {
		return nil, errors.NotInitialized(errors.PhaseBoot, "configuration")
	}
	if len(module) == 0 {
		return nil, errors.InvalidInput(errors.PhaseBoot, "empty runtime module")
	}

	logger := o.logger
	if cfg.DiagnosticTracing() {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.DebugLevel))
	}

	lopts := append([]loader.Option{loader.WithLogger(logger)}, o.loaderOpts...)
	res, err := loader.New(o.baseDir, lopts...).Load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		cfg:     cfg,
		fs:      afero.NewMemMapFs(),
		handles: handle.NewTable().WithLogger(logger),
		logger:  logger,
		env:     Environment(cfg),
		args:    append([]string{ModuleName}, cfg.Args()...),
	}

	var heapAssets []loader.Loaded
	for _, l := range res.Loaded {
		rt.loaded = append(rt.loaded, l.Location)
		if l.Asset.Behavior() == config.BehaviorHeap {
			heapAssets = append(heapAssets, l)
			continue
		}
		vp := VirtualPath(cfg, l.Asset)
		if err := rt.mount(vp, l.Data); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		logger.Debug("asset mounted", zap.String("asset", l.Asset.Options().Name), zap.String("path", vp))
	}
	for _, s := range res.Skipped {
		rt.skipped = append(rt.skipped, s.Asset.Options().Name)
	}

	if err := rt.instantiate(ctx, module, o); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	if rt.alloc != nil {
		rt.alloc.setContext(ctx)
	}
	err = rt.copyHeap(heapAssets)
	if rt.alloc != nil {
		// Later allocations must not depend on Boot's context.
		rt.alloc.setContext(context.Background())
	}
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	if err := rt.start(ctx, o.startFunctions); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	logger.Info("runtime booted",
		zap.Int("assets", len(rt.loaded)),
		zap.Int("skipped", len(rt.skipped)),
		zap.Int("heap_blocks", len(rt.heap)),
		zap.String("globalization", string(cfg.ResolvedGlobalization())))

	if o.onLoaded != nil {
		o.onLoaded(rt)
	}
	return rt, nil
}

func (r *Runtime) instantiate(ctx context.Context, module []byte, o *options) error {
	rcfg := wazero.NewRuntimeConfig()
	if o.memoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(o.memoryLimitPages)
	}
	r.wrt = wazero.NewRuntimeWithConfig(ctx, rcfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.wrt); err != nil {
		return errors.Wrap(errors.PhaseBoot, errors.KindInstantiation, err, "instantiate WASI")
	}

	compiled, err := r.wrt.CompileModule(ctx, module)
	if err != nil {
		return errors.Wrap(errors.PhaseBoot, errors.KindInvalidData, err, "compile runtime module")
	}

	modCfg := wazero.NewModuleConfig().
		WithName(ModuleName).
		WithArgs(r.args...).
		WithFSConfig(wazero.NewFSConfig().WithFSMount(afero.NewIOFS(r.fs), "/")).
		WithStartFunctions()
	for _, k := range slices.Sorted(maps.Keys(r.env)) {
		modCfg = modCfg.WithEnv(k, r.env[k])
	}
	if o.stdout != nil {
		modCfg = modCfg.WithStdout(o.stdout)
	}
	if o.stderr != nil {
		modCfg = modCfg.WithStderr(o.stderr)
	}

	mod, err := r.wrt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return errors.Instantiation(err)
	}
	r.mod = mod

	if mem := mod.Memory(); mem != nil {
		r.mem = &guestMemory{mem: mem}
	}
	if malloc := mod.ExportedFunction(mallocExport); malloc != nil {
		r.alloc = &mallocAllocator{
			malloc: malloc,
			free:   mod.ExportedFunction(freeExport),
			logger: r.logger,
		}
	}
	return nil
}

// copyHeap allocates each heap asset with the module's malloc export and
// writes its bytes into linear memory.
func (r *Runtime) copyHeap(assets []loader.Loaded) error {
	if len(assets) == 0 {
		return nil
	}
	if r.alloc == nil {
		return errors.Unsupported(errors.PhaseBoot, "heap assets need a malloc export")
	}
	if r.mem == nil {
		return errors.NotFound(errors.PhaseBoot, "export", "memory")
	}

	for _, a := range assets {
		name := a.Asset.Options().Name
		size := uint32(len(a.Data))
		ptr, err := r.alloc.Alloc(size)
		if err != nil {
			return errors.New(errors.PhaseBoot, errors.KindAllocation).
				Path(name).
				Cause(err).
				Detail("allocate %d bytes", size).
				Build()
		}
		if err := r.mem.Write(uint32(ptr), a.Data); err != nil {
			r.alloc.Free(ptr)
			return errors.New(errors.PhaseBoot, errors.KindAllocation).
				Path(name).
				Value(ptr).
				Cause(err).
				Build()
		}

		block := HeapBlock{Name: name, Ptr: ptr, Size: size}
		block.Handle = r.handles.Register(block)
		r.heap = append(r.heap, block)
		r.logger.Debug("heap asset copied",
			zap.String("asset", name),
			zap.Uint32("ptr", uint32(ptr)),
			zap.Uint32("size", size))
	}
	return nil
}

func (r *Runtime) start(ctx context.Context, names []string) error {
	for _, name := range names {
		fn := r.mod.ExportedFunction(name)
		if fn == nil {
			continue
		}
		if _, err := fn.Call(ctx); err != nil {
			var exitErr *sys.ExitError
			if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
				continue
			}
			return errors.Wrap(errors.PhaseBoot, errors.KindInstantiation, err, "call "+name)
		}
	}
	return nil
}

// Close releases the handle table and the wazero runtime.
func (r *Runtime) Close(ctx context.Context) error {
	if r.handles != nil {
		_ = r.handles.Close()
	}
	if r.wrt != nil {
		return r.wrt.Close(ctx)
	}
	return nil
}

func (r *Runtime) Config() *config.Config  { return r.cfg }
func (r *Runtime) Handles() *handle.Table  { return r.handles }
func (r *Runtime) Module() api.Module      { return r.mod }
func (r *Runtime) Heap() []HeapBlock       { return slices.Clone(r.heap) }
func (r *Runtime) Args() []string          { return slices.Clone(r.args) }
func (r *Runtime) Env() map[string]string  { return maps.Clone(r.env) }
func (r *Runtime) LoadedFiles() []string   { return slices.Clone(r.loaded) }
func (r *Runtime) SkippedAssets() []string { return slices.Clone(r.skipped) }

// Memory is the module's linear memory, nil when it exports none.
func (r *Runtime) Memory() dotnethost.Memory {
	if r.mem == nil {
		return nil
	}
	return r.mem
}

// SetContext sets the context guest allocations run under. The default is
// context.Background.
func (r *Runtime) SetContext(ctx context.Context) {
	if r.alloc != nil {
		r.alloc.setContext(ctx)
	}
}

// Allocator is backed by the module's malloc and free exports, nil when
// malloc is not exported.
func (r *Runtime) Allocator() dotnethost.Allocator {
	if r.alloc == nil {
		return nil
	}
	return r.alloc
}

// FS is the virtual filesystem mounted at / in the guest.
func (r *Runtime) FS() fs.FS { return afero.NewIOFS(r.fs) }

// mount writes data at the guest path vp. Keys are kept relative so they
// match the names fs.FS callers use.
func (r *Runtime) mount(vp string, data []byte) error {
	name := strings.TrimPrefix(vp, "/")
	if dir := path.Dir(name); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.PhaseBoot, errors.KindInvalidData, err, "mkdir "+dir)
		}
	}
	if err := afero.WriteFile(r.fs, name, data, 0o644); err != nil {
		return errors.Wrap(errors.PhaseBoot, errors.KindInvalidData, err, "mount "+vp)
	}
	return nil
}

// VirtualPath is where an asset is placed in the guest filesystem. An
// explicit virtual_path always wins.
func VirtualPath(cfg *config.Config, a config.Asset) string {
	o := a.Options()
	if o.VirtualPath != "" {
		return path.Clean("/" + o.VirtualPath)
	}
	switch v := a.(type) {
	case config.AssemblyAsset:
		return path.Join("/", cfg.AssemblyRoot(), o.Name)
	case config.ResourceAsset:
		return path.Join("/", cfg.AssemblyRoot(), v.Culture, o.Name)
	case config.ICUAsset:
		return path.Join(ICUDataDir, o.Name)
	}
	return path.Join("/", o.Name)
}

// Environment computes the guest environment. Configured variables override
// the derived ones.
func Environment(cfg *config.Config) map[string]string {
	env := map[string]string{
		EnvGlobalizationInvariant: strconv.FormatBool(cfg.ResolvedGlobalization() == config.GlobalizationInvariant),
	}
	if cfg.DebuggingEnabled() {
		env[EnvDebugLevel] = strconv.Itoa(cfg.DebugLevel())
	}
	maps.Copy(env, cfg.EnvironmentVariables())
	return env
}
