// Package config validates the declarative configuration of a managed
// runtime hosted in WebAssembly.
//
// A RawConfig mirrors the JSON/YAML file. Validate turns it into a read-only
// Config or fails with an *errors.Error naming the offending field:
//
//	cfg, err := config.Load("app.config.json")
//
// Assets are normalized into one type per behavior so the fields a behavior
// requires are always present:
//
//	AssemblyAsset  managed assembly or .pdb
//	ResourceAsset  satellite assembly, always has a Culture
//	HeapAsset      bytes copied into guest memory
//	ICUAsset       ICU data archive
//	VFSAsset       virtual filesystem file, always has a VirtualPath
package config
