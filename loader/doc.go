// Package loader fetches the assets named by a host configuration.
//
// Each asset is looked up at its local path (assemblies under the assembly
// root, satellite resources under <root>/<culture>/) or, when it may load
// remotely, at every remote source in order:
//
//	l := loader.New(appDir, loader.WithLogger(log))
//	res, err := l.Load(ctx, cfg)
//
// Fetches run concurrently; Result keeps configuration order. A failure of
// an optional asset is logged and recorded in Result.Skipped, any other
// failure aborts the load with a fetch error.
package loader
