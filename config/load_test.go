package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/dotnet-host/errors"
)

const jsonConfig = `{
  "assembly_root": "managed",
  "debug_level": 0,
  "globalization_mode": "invariant",
  "assets": [
    {"name": "dotnet.dll", "behavior": "assembly"},
    {"name": "app.resources.dll", "behavior": "resource", "culture": "fr-FR"},
    {"name": "x.bin", "behavior": "vfs", "virtual_path": "/data/x.bin", "is_optional": true}
  ],
  "remote_sources": ["./", "https://cdn.example.com/"],
  "environment_variables": {"TZ": "UTC"},
  "coverage_profiler_options": {"write_at": "App::Stop"}
}`

const yamlConfig = `assembly_root: managed
enable_debugging: 1
assets:
  - name: dotnet.dll
    behavior: assembly
  - name: icudt.dat
    behavior: icu
    load_remote: true
runtime_options:
  - --interp
ignore_pdb_load_errors: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "app.json", jsonConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Assets()) != 3 {
		t.Fatalf("assets = %d", len(cfg.Assets()))
	}
	if !cfg.Assets()[2].Options().Optional {
		t.Error("is_optional lost")
	}
	if cfg.GlobalizationMode() != GlobalizationInvariant {
		t.Errorf("mode = %q", cfg.GlobalizationMode())
	}
	if cfg.EnvironmentVariables()["TZ"] != "UTC" {
		t.Error("environment lost")
	}
	ps := cfg.Profilers()
	if len(ps) != 1 || ps[0].Kind != ProfilerCoverage || ps[0].SendTo != DefaultCoverageProfilerSend {
		t.Errorf("profilers = %+v", ps)
	}
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "app.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DebugLevel() != 1 {
		t.Errorf("DebugLevel = %d", cfg.DebugLevel())
	}
	if !cfg.IgnorePDBLoadErrors() {
		t.Error("ignore_pdb_load_errors lost")
	}
	if _, ok := cfg.Assets()[1].(ICUAsset); !ok {
		t.Errorf("asset 1 = %T", cfg.Assets()[1])
	}
	if got := cfg.RuntimeOptions(); len(got) != 1 || got[0] != "--interp" {
		t.Errorf("runtime options = %v", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "app.toml", ""))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindUnsupported}) {
		t.Errorf("unknown extension: %v", err)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindNotFound}) {
		t.Errorf("missing file: %v", err)
	}

	_, err = Load(writeFile(t, "bad.json", "{"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidData}) {
		t.Errorf("bad JSON: %v", err)
	}

	_, err = Load(writeFile(t, "obsolete.yml", "assets: []\nassembly_list: [a.dll]\n"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindObsoleteField}) {
		t.Errorf("obsolete field: %v", err)
	}
}
