package config

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/dotnet-host/errors"
)

func intPtr(v int) *int { return &v }

func validRaw() *RawConfig {
	return &RawConfig{
		AssemblyRoot: "managed",
		Assets: []RawAsset{
			{Name: "dotnet.dll", Behavior: "assembly"},
			{Name: "app.pdb", Behavior: "assembly", IsOptional: true},
			{Name: "app.resources.dll", Behavior: "resource", Culture: "fr-FR"},
			{Name: "seed.bin", Behavior: "heap"},
			{Name: "icudt.dat", Behavior: "icu", LoadRemote: true},
			{Name: "x.bin", Behavior: "vfs", VirtualPath: "/data/x.bin"},
		},
		DebugLevel:           intPtr(1),
		RemoteSources:        []string{"./", "https://cdn.example.com/app/"},
		EnvironmentVariables: map[string]string{"MONO_LOG_LEVEL": "debug"},
		RuntimeOptions:       []string{"--jiterpreter-stats-enabled"},
	}
}

func requireKind(t *testing.T, err error, kind errors.Kind) *errors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if e.Phase != errors.PhaseConfig || e.Kind != kind {
		t.Fatalf("got %s/%s (%v), want config/%s", e.Phase, e.Kind, err, kind)
	}
	return e
}

func TestValidate_Valid(t *testing.T) {
	cfg, err := Validate(validRaw())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.AssemblyRoot() != "managed" {
		t.Errorf("AssemblyRoot = %q", cfg.AssemblyRoot())
	}
	if cfg.DebugLevel() != 1 || !cfg.DebuggingEnabled() {
		t.Errorf("DebugLevel = %d", cfg.DebugLevel())
	}
	if cfg.GlobalizationMode() != GlobalizationAuto {
		t.Errorf("GlobalizationMode = %q", cfg.GlobalizationMode())
	}
	if cfg.ResolvedGlobalization() != GlobalizationICU {
		t.Errorf("ResolvedGlobalization = %q", cfg.ResolvedGlobalization())
	}

	want := []Asset{
		AssemblyAsset{AssetOptions{Name: "dotnet.dll"}},
		AssemblyAsset{AssetOptions{Name: "app.pdb", Optional: true}},
		ResourceAsset{AssetOptions: AssetOptions{Name: "app.resources.dll"}, Culture: "fr-FR"},
		HeapAsset{AssetOptions{Name: "seed.bin"}},
		ICUAsset{AssetOptions{Name: "icudt.dat", LoadRemote: true}},
		VFSAsset{AssetOptions{Name: "x.bin", VirtualPath: "/data/x.bin"}},
	}
	if diff := cmp.Diff(want, cfg.Assets()); diff != "" {
		t.Fatalf("assets mismatch (-want +got):\n%s", diff)
	}

	if !cfg.Assets()[1].(AssemblyAsset).IsPDB() || cfg.Assets()[0].(AssemblyAsset).IsPDB() {
		t.Error("IsPDB mismatch")
	}
}

func TestValidate_ResourceCulture(t *testing.T) {
	raw := &RawConfig{Assets: []RawAsset{{Name: "app.resources.dll", Behavior: "resource"}}}

	_, err := Validate(raw)
	e := requireKind(t, err, errors.KindFieldMissing)
	if strings.Join(e.Path, ".") != "assets.0.culture" {
		t.Errorf("path = %v", e.Path)
	}
	if e.Value != raw.Assets[0] {
		t.Errorf("Value = %v, want offending raw asset", e.Value)
	}

	raw.Assets[0].Culture = "fr-FR"
	cfg, err := Validate(raw)
	if err != nil {
		t.Fatalf("with culture: %v", err)
	}
	if got := cfg.Assets()[0].(ResourceAsset).Culture; got != "fr-FR" {
		t.Errorf("Culture = %q", got)
	}
}

func TestValidate_CultureOnlyForResources(t *testing.T) {
	raw := &RawConfig{Assets: []RawAsset{{Name: "app.dll", Behavior: "assembly", Culture: "de"}}}
	requireKind(t, mustFail(raw), errors.KindFieldUnexpected)
}

func TestValidate_VFSVirtualPath(t *testing.T) {
	raw := &RawConfig{Assets: []RawAsset{{Name: "x.bin", Behavior: "vfs"}}}

	e := requireKind(t, mustFail(raw), errors.KindFieldMissing)
	if strings.Join(e.Path, ".") != "assets.0.virtual_path" {
		t.Errorf("path = %v", e.Path)
	}

	raw.Assets[0].VirtualPath = "/data/x.bin"
	cfg, err := Validate(raw)
	if err != nil {
		t.Fatalf("with virtual_path: %v", err)
	}
	if got := cfg.Assets()[0].Options().VirtualPath; got != "/data/x.bin" {
		t.Errorf("VirtualPath = %q", got)
	}
}

func mustFail(raw *RawConfig) error {
	_, err := Validate(raw)
	return err
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawConfig)
		kind   errors.Kind
	}{
		{"missing assets", func(r *RawConfig) { r.Assets = nil }, errors.KindFieldMissing},
		{"missing name", func(r *RawConfig) { r.Assets[0].Name = "" }, errors.KindFieldMissing},
		{"unknown behavior", func(r *RawConfig) { r.Assets[0].Behavior = "js-module" }, errors.KindInvalidEnum},
		{"empty behavior", func(r *RawConfig) { r.Assets[0].Behavior = "" }, errors.KindInvalidEnum},
		{"bad globalization", func(r *RawConfig) { r.GlobalizationMode = "hybrid" }, errors.KindInvalidEnum},
		{"remote source without slash", func(r *RawConfig) { r.RemoteSources = []string{"https://cdn.example.com"} }, errors.KindInvalidFormat},
		{"empty remote source", func(r *RawConfig) { r.RemoteSources = []string{""} }, errors.KindInvalidFormat},
		{"debug conflict", func(r *RawConfig) { r.EnableDebugging = intPtr(0) }, errors.KindConflict},
		{"bad env name", func(r *RawConfig) { r.EnvironmentVariables = map[string]string{"A=B": "x"} }, errors.KindInvalidFormat},
		{"bad profiler write_at", func(r *RawConfig) { r.AOTProfilerOptions = &RawProfilerOptions{WriteAt: "StopProfile"} }, errors.KindInvalidFormat},
		{"bad profiler send_to", func(r *RawConfig) { r.CoverageProfilerOptions = &RawProfilerOptions{SendTo: "A::"} }, errors.KindInvalidFormat},
		{"assembly_list", func(r *RawConfig) { r.AssemblyList = []any{"a.dll"} }, errors.KindObsoleteField},
		{"runtime_assets", func(r *RawConfig) { r.RuntimeAssets = []any{} }, errors.KindObsoleteField},
		{"runtime_asset_sources", func(r *RawConfig) { r.RuntimeAssetSources = "x" }, errors.KindObsoleteField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(raw)
			e := requireKind(t, mustFail(raw), tt.kind)
			if e.Message() == "" {
				t.Error("error should carry a message")
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	_, err := Validate(nil)
	requireKind(t, err, errors.KindInvalidInput)
}

func TestValidate_Debug(t *testing.T) {
	tests := []struct {
		name   string
		level  *int
		enable *int
		want   int
	}{
		{"neither", nil, nil, 0},
		{"level only", intPtr(-1), nil, -1},
		{"enable only", nil, intPtr(2), 2},
		{"both agree", intPtr(3), intPtr(3), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &RawConfig{Assets: []RawAsset{}, DebugLevel: tt.level, EnableDebugging: tt.enable}
			cfg, err := Validate(raw)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.DebugLevel() != tt.want {
				t.Errorf("DebugLevel = %d, want %d", cfg.DebugLevel(), tt.want)
			}
		})
	}
}

func TestResolvedGlobalization(t *testing.T) {
	tests := []struct {
		mode   string
		assets []RawAsset
		want   GlobalizationMode
	}{
		{"", nil, GlobalizationInvariant},
		{"auto", []RawAsset{{Name: "icudt.dat", Behavior: "icu"}}, GlobalizationICU},
		{"invariant", []RawAsset{{Name: "icudt.dat", Behavior: "icu"}}, GlobalizationInvariant},
		{"icu", nil, GlobalizationICU},
	}

	for _, tt := range tests {
		assets := tt.assets
		if assets == nil {
			assets = []RawAsset{}
		}
		cfg, err := Validate(&RawConfig{Assets: assets, GlobalizationMode: tt.mode})
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.ResolvedGlobalization(); got != tt.want {
			t.Errorf("mode %q: got %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestProfilersAndArgs(t *testing.T) {
	raw := validRaw()
	raw.AOTProfilerOptions = &RawProfilerOptions{}
	raw.CoverageProfilerOptions = &RawProfilerOptions{WriteAt: "App.Main::Stop", SendTo: "App.Main::Dump"}

	cfg, err := Validate(raw)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"--jiterpreter-stats-enabled",
		"--profile=aot:write-at-method=WebAssembly.Runtime::StopProfile,send-to-method=WebAssembly.Runtime::DumpAotProfileData",
		"--profile=coverage:write-at-method=App.Main::Stop,send-to-method=App.Main::Dump",
	}
	if diff := cmp.Diff(want, cfg.Args()); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigIsSnapshot(t *testing.T) {
	raw := validRaw()
	cfg, err := Validate(raw)
	if err != nil {
		t.Fatal(err)
	}

	raw.RemoteSources[0] = "mutated/"
	raw.EnvironmentVariables["MONO_LOG_LEVEL"] = "mutated"
	cfg.EnvironmentVariables()["MONO_LOG_LEVEL"] = "mutated"
	cfg.RemoteSources()[1] = "mutated/"

	if cfg.RemoteSources()[0] != "./" || cfg.RemoteSources()[1] != "https://cdn.example.com/app/" {
		t.Errorf("remote sources changed: %v", cfg.RemoteSources())
	}
	if cfg.EnvironmentVariables()["MONO_LOG_LEVEL"] != "debug" {
		t.Error("environment changed through raw or accessor")
	}
}

func TestParseBehavior(t *testing.T) {
	for _, s := range []string{"resource", "assembly", "heap", "icu", "vfs"} {
		b, ok := ParseBehavior(s)
		if !ok || b.String() != s {
			t.Errorf("ParseBehavior(%q) = %q, %v", s, b, ok)
		}
	}
	if _, ok := ParseBehavior("Assembly"); ok {
		t.Error("behavior strings are case sensitive")
	}
}
