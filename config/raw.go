package config

// RawConfig is the declarative host configuration as read from a file.
type RawConfig struct {
	AssemblyRoot            string              `json:"assembly_root" yaml:"assembly_root"`
	Assets                  []RawAsset          `json:"assets" yaml:"assets"`
	DebugLevel              *int                `json:"debug_level,omitempty" yaml:"debug_level,omitempty"`
	EnableDebugging         *int                `json:"enable_debugging,omitempty" yaml:"enable_debugging,omitempty"`
	GlobalizationMode       string              `json:"globalization_mode,omitempty" yaml:"globalization_mode,omitempty"`
	DiagnosticTracing       bool                `json:"diagnostic_tracing,omitempty" yaml:"diagnostic_tracing,omitempty"`
	RemoteSources           []string            `json:"remote_sources,omitempty" yaml:"remote_sources,omitempty"`
	EnvironmentVariables    map[string]string   `json:"environment_variables,omitempty" yaml:"environment_variables,omitempty"`
	RuntimeOptions          []string            `json:"runtime_options,omitempty" yaml:"runtime_options,omitempty"`
	AOTProfilerOptions      *RawProfilerOptions `json:"aot_profiler_options,omitempty" yaml:"aot_profiler_options,omitempty"`
	CoverageProfilerOptions *RawProfilerOptions `json:"coverage_profiler_options,omitempty" yaml:"coverage_profiler_options,omitempty"`
	IgnorePDBLoadErrors     bool                `json:"ignore_pdb_load_errors,omitempty" yaml:"ignore_pdb_load_errors,omitempty"`

	// Obsolete fields. Their presence is rejected.
	AssemblyList        any `json:"assembly_list,omitempty" yaml:"assembly_list,omitempty"`
	RuntimeAssets       any `json:"runtime_assets,omitempty" yaml:"runtime_assets,omitempty"`
	RuntimeAssetSources any `json:"runtime_asset_sources,omitempty" yaml:"runtime_asset_sources,omitempty"`
}

// RawAsset is one entry of RawConfig.Assets.
type RawAsset struct {
	Name        string `json:"name" yaml:"name"`
	Behavior    string `json:"behavior" yaml:"behavior"`
	VirtualPath string `json:"virtual_path,omitempty" yaml:"virtual_path,omitempty"`
	Culture     string `json:"culture,omitempty" yaml:"culture,omitempty"`
	LoadRemote  bool   `json:"load_remote,omitempty" yaml:"load_remote,omitempty"`
	IsOptional  bool   `json:"is_optional,omitempty" yaml:"is_optional,omitempty"`
}

// RawProfilerOptions names the managed methods a profiler hooks, each in
// Class::Method form.
type RawProfilerOptions struct {
	WriteAt string `json:"write_at,omitempty" yaml:"write_at,omitempty"`
	SendTo  string `json:"send_to,omitempty" yaml:"send_to,omitempty"`
}
