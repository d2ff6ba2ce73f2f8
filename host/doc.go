// Package host boots a .NET runtime WebAssembly module on wazero.
//
// Boot fetches the configured assets, mounts them in an in-memory
// filesystem at the paths the runtime expects, copies heap assets into
// linear memory through the module's malloc export, and calls the start
// exports:
//
//	cfg, err := config.Load("app.json")
//	if err != nil {
//		return err
//	}
//	rt, err := host.Boot(ctx, cfg, wasmBytes, host.WithBaseDir("publish"))
//	if err != nil {
//		return err
//	}
//	defer rt.Close(ctx)
package host
