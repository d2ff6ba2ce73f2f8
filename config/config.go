package config

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/dotnet-host/errors"
)

// GlobalizationMode selects how the runtime handles culture data.
type GlobalizationMode string

const (
	// GlobalizationICU loads ICU data from the "icu" assets.
	GlobalizationICU GlobalizationMode = "icu"
	// GlobalizationInvariant runs with invariant culture only.
	GlobalizationInvariant GlobalizationMode = "invariant"
	// GlobalizationAuto uses ICU when an "icu" asset is present.
	GlobalizationAuto GlobalizationMode = "auto"
)

func ParseGlobalizationMode(s string) (GlobalizationMode, bool) {
	switch m := GlobalizationMode(s); m {
	case "":
		return GlobalizationAuto, true
	case GlobalizationICU, GlobalizationInvariant, GlobalizationAuto:
		return m, true
	}
	return "", false
}

// ProfilerKind distinguishes the profilers the runtime can start.
type ProfilerKind string

const (
	ProfilerAOT      ProfilerKind = "aot"
	ProfilerCoverage ProfilerKind = "coverage"
)

const (
	DefaultProfilerWriteAt      = "WebAssembly.Runtime::StopProfile"
	DefaultAOTProfilerSendTo    = "WebAssembly.Runtime::DumpAotProfileData"
	DefaultCoverageProfilerSend = "WebAssembly.Runtime::DumpCoverageProfileData"
)

// ProfilerOptions is a validated profiler configuration.
type ProfilerOptions struct {
	Kind    ProfilerKind
	WriteAt string
	SendTo  string
}

// Arg renders the options as a runtime option string.
func (p ProfilerOptions) Arg() string {
	return "--profile=" + string(p.Kind) + ":write-at-method=" + p.WriteAt + ",send-to-method=" + p.SendTo
}

// Config is a validated, read-only host configuration. Accessors return
// copies.
type Config struct {
	assemblyRoot        string
	assets              []Asset
	debugLevel          int
	globalization       GlobalizationMode
	remoteSources       []string
	env                 map[string]string
	runtimeOptions      []string
	profilers           []ProfilerOptions
	ignorePDBLoadErrors bool
	diagnosticTracing   bool
}

func (c *Config) AssemblyRoot() string                 { return c.assemblyRoot }
func (c *Config) Assets() []Asset                      { return slices.Clone(c.assets) }
func (c *Config) DebugLevel() int                      { return c.debugLevel }
func (c *Config) DebuggingEnabled() bool               { return c.debugLevel != 0 }
func (c *Config) GlobalizationMode() GlobalizationMode { return c.globalization }
func (c *Config) RemoteSources() []string              { return slices.Clone(c.remoteSources) }
func (c *Config) EnvironmentVariables() map[string]string {
	return maps.Clone(c.env)
}
func (c *Config) RuntimeOptions() []string     { return slices.Clone(c.runtimeOptions) }
func (c *Config) Profilers() []ProfilerOptions { return slices.Clone(c.profilers) }
func (c *Config) IgnorePDBLoadErrors() bool    { return c.ignorePDBLoadErrors }
func (c *Config) DiagnosticTracing() bool      { return c.diagnosticTracing }

// ResolvedGlobalization resolves GlobalizationAuto against the asset list.
func (c *Config) ResolvedGlobalization() GlobalizationMode {
	if c.globalization != GlobalizationAuto {
		return c.globalization
	}
	for _, a := range c.assets {
		if a.Behavior() == BehaviorICU {
			return GlobalizationICU
		}
	}
	return GlobalizationInvariant
}

// Args returns the runtime options followed by the profiler options.
func (c *Config) Args() []string {
	args := slices.Clone(c.runtimeOptions)
	for _, p := range c.profilers {
		args = append(args, p.Arg())
	}
	return args
}

// Validate checks raw and returns the normalized configuration. A failure is
// always an *errors.Error in PhaseConfig carrying the offending raw value.
func Validate(raw *RawConfig) (*Config, error) {
	if raw == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "nil configuration")
	}

	if raw.AssemblyList != nil {
		return nil, errors.Obsolete(errors.PhaseConfig, "assembly_list", raw.AssemblyList)
	}
	if raw.RuntimeAssets != nil {
		return nil, errors.Obsolete(errors.PhaseConfig, "runtime_assets", raw.RuntimeAssets)
	}
	if raw.RuntimeAssetSources != nil {
		return nil, errors.Obsolete(errors.PhaseConfig, "runtime_asset_sources", raw.RuntimeAssetSources)
	}

	if raw.Assets == nil {
		return nil, errors.FieldMissing(errors.PhaseConfig, []string{"assets"}, "assets")
	}

	cfg := &Config{
		assemblyRoot:        strings.Trim(raw.AssemblyRoot, "/"),
		assets:              make([]Asset, 0, len(raw.Assets)),
		env:                 make(map[string]string, len(raw.EnvironmentVariables)),
		runtimeOptions:      slices.Clone(raw.RuntimeOptions),
		ignorePDBLoadErrors: raw.IgnorePDBLoadErrors,
		diagnosticTracing:   raw.DiagnosticTracing,
	}

	for i, ra := range raw.Assets {
		a, err := validateAsset(i, ra)
		if err != nil {
			return nil, err
		}
		cfg.assets = append(cfg.assets, a)
	}

	level, err := validateDebug(raw.DebugLevel, raw.EnableDebugging)
	if err != nil {
		return nil, err
	}
	cfg.debugLevel = level

	mode, ok := ParseGlobalizationMode(raw.GlobalizationMode)
	if !ok {
		return nil, errors.InvalidEnum(errors.PhaseConfig, []string{"globalization_mode"}, raw.GlobalizationMode, "globalization mode")
	}
	cfg.globalization = mode

	for i, src := range raw.RemoteSources {
		if src == "" || !strings.HasSuffix(src, "/") {
			return nil, errors.InvalidFormat(errors.PhaseConfig,
				[]string{"remote_sources", strconv.Itoa(i)}, src, "remote source must end with /")
		}
	}
	cfg.remoteSources = slices.Clone(raw.RemoteSources)

	for k, v := range raw.EnvironmentVariables {
		if k == "" || strings.Contains(k, "=") {
			return nil, errors.InvalidFormat(errors.PhaseConfig,
				[]string{"environment_variables", k}, k, "variable name must be non-empty and contain no =")
		}
		cfg.env[k] = v
	}

	if raw.AOTProfilerOptions != nil {
		p, err := validateProfiler(ProfilerAOT, raw.AOTProfilerOptions, DefaultAOTProfilerSendTo)
		if err != nil {
			return nil, err
		}
		cfg.profilers = append(cfg.profilers, p)
	}
	if raw.CoverageProfilerOptions != nil {
		p, err := validateProfiler(ProfilerCoverage, raw.CoverageProfilerOptions, DefaultCoverageProfilerSend)
		if err != nil {
			return nil, err
		}
		cfg.profilers = append(cfg.profilers, p)
	}

	return cfg, nil
}

func validateAsset(i int, ra RawAsset) (Asset, error) {
	path := func(field string) []string {
		return []string{"assets", strconv.Itoa(i), field}
	}

	if ra.Name == "" {
		return nil, errors.New(errors.PhaseConfig, errors.KindFieldMissing).
			Path(path("name")...).
			Value(ra).
			Detail("asset name not set").
			Build()
	}

	behavior, ok := ParseBehavior(ra.Behavior)
	if !ok {
		e := errors.InvalidEnum(errors.PhaseConfig, path("behavior"), ra.Behavior, "asset behavior")
		e.Value = ra
		return nil, e
	}

	if behavior != BehaviorResource && ra.Culture != "" {
		e := errors.FieldUnexpected(errors.PhaseConfig, path("culture"), "culture", ra)
		e.Detail = "culture is only valid for resource assets, " + ra.Name + " is " + string(behavior)
		return nil, e
	}

	opts := AssetOptions{
		Name:        ra.Name,
		VirtualPath: ra.VirtualPath,
		LoadRemote:  ra.LoadRemote,
		Optional:    ra.IsOptional,
	}

	switch behavior {
	case BehaviorResource:
		if ra.Culture == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindFieldMissing).
				Path(path("culture")...).
				Value(ra).
				Detail("resource asset %s needs a culture", ra.Name).
				Build()
		}
		return ResourceAsset{AssetOptions: opts, Culture: ra.Culture}, nil
	case BehaviorAssembly:
		return AssemblyAsset{AssetOptions: opts}, nil
	case BehaviorHeap:
		return HeapAsset{AssetOptions: opts}, nil
	case BehaviorICU:
		return ICUAsset{AssetOptions: opts}, nil
	default:
		if ra.VirtualPath == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindFieldMissing).
				Path(path("virtual_path")...).
				Value(ra).
				Detail("vfs asset %s needs a virtual_path", ra.Name).
				Build()
		}
		return VFSAsset{AssetOptions: opts}, nil
	}
}

// validateDebug reconciles debug_level and enable_debugging. Either may be
// set; when both are set they must agree.
func validateDebug(debugLevel, enableDebugging *int) (int, error) {
	switch {
	case debugLevel != nil && enableDebugging != nil:
		if *debugLevel != *enableDebugging {
			return 0, errors.New(errors.PhaseConfig, errors.KindConflict).
				Path("debug_level").
				Value([2]int{*debugLevel, *enableDebugging}).
				Detail("debug_level %d disagrees with enable_debugging %d", *debugLevel, *enableDebugging).
				Build()
		}
		return *debugLevel, nil
	case debugLevel != nil:
		return *debugLevel, nil
	case enableDebugging != nil:
		return *enableDebugging, nil
	}
	return 0, nil
}

func validateProfiler(kind ProfilerKind, raw *RawProfilerOptions, defaultSendTo string) (ProfilerOptions, error) {
	field := string(kind) + "_profiler_options"
	p := ProfilerOptions{
		Kind:    kind,
		WriteAt: raw.WriteAt,
		SendTo:  raw.SendTo,
	}
	if p.WriteAt == "" {
		p.WriteAt = DefaultProfilerWriteAt
	}
	if p.SendTo == "" {
		p.SendTo = defaultSendTo
	}

	if !isMethodName(p.WriteAt) {
		return p, errors.InvalidFormat(errors.PhaseConfig, []string{field, "write_at"}, raw.WriteAt, "want Class::Method")
	}
	if !isMethodName(p.SendTo) {
		return p, errors.InvalidFormat(errors.PhaseConfig, []string{field, "send_to"}, raw.SendTo, "want Class::Method")
	}
	return p, nil
}

func isMethodName(s string) bool {
	class, method, ok := strings.Cut(s, "::")
	return ok && class != "" && method != "" && !strings.Contains(method, "::")
}
