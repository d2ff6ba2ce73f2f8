// Package dotnethost hosts a .NET runtime compiled to WebAssembly.
//
// The host reads a declarative configuration, fetches the assemblies and
// data files it lists, and boots the runtime module on wazero with those
// files mounted in a virtual filesystem.
//
// # Packages
//
//	dotnethost/          Root package with the guest Memory and Allocator interfaces
//	├── config/          Configuration model, validation and JSON/YAML loading
//	├── loader/          Asset retrieval from disk and remote sources
//	├── host/            Runtime bootstrap on wazero
//	├── handle/          Branded interop handles and the JS handle table
//	├── xmlserial/       XML deserialization with unknown-node events
//	├── errors/          Structured error types
//	└── cmd/dotnet-host  Command line host
//
// # Quick Start
//
//	cfg, err := config.Load("publish/app.json")
//	if err != nil {
//		return err
//	}
//
//	rt, err := host.Boot(ctx, cfg, wasmBytes, host.WithBaseDir("publish"))
//	if err != nil {
//		return err
//	}
//	defer rt.Close(ctx)
//
// # Errors
//
// Failures are reported as *errors.Error values carrying a phase (config,
// fetch, boot, decode, runtime) and a kind, and match with errors.Is:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindObsoleteField}) {
//		...
//	}
//
// # Logging
//
// Each package logs through zap and defaults to a no-op logger. Use the
// package's SetLogger, or the WithLogger options, to enable output.
package dotnethost
