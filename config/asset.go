package config

import (
	"path"
	"strings"
)

// Behavior determines where a fetched asset is delivered.
type Behavior string

const (
	BehaviorResource Behavior = "resource" // satellite resource assembly
	BehaviorAssembly Behavior = "assembly" // managed assembly or its debug symbols
	BehaviorHeap     Behavior = "heap"     // raw bytes copied into the guest heap
	BehaviorICU      Behavior = "icu"      // ICU globalization data archive
	BehaviorVFS      Behavior = "vfs"      // file in the virtual filesystem
)

// ParseBehavior maps a wire string to a Behavior.
func ParseBehavior(s string) (Behavior, bool) {
	switch b := Behavior(s); b {
	case BehaviorResource, BehaviorAssembly, BehaviorHeap, BehaviorICU, BehaviorVFS:
		return b, true
	}
	return "", false
}

func (b Behavior) String() string { return string(b) }

// AssetOptions holds the fields shared by every asset kind.
type AssetOptions struct {
	// Name is the file name including extension.
	Name string
	// VirtualPath overrides where the asset is placed in the virtual
	// filesystem. Always set for VFSAsset.
	VirtualPath string
	// LoadRemote allows fetching from the configured remote sources.
	LoadRemote bool
	// Optional assets that fail to load are skipped with a warning.
	Optional bool
}

func (o AssetOptions) Options() AssetOptions { return o }
func (o AssetOptions) isAsset()              {}

// Asset is one of AssemblyAsset, ResourceAsset, HeapAsset, ICUAsset or
// VFSAsset.
type Asset interface {
	Behavior() Behavior
	Options() AssetOptions
	isAsset()
}

type AssemblyAsset struct {
	AssetOptions
}

func (AssemblyAsset) Behavior() Behavior { return BehaviorAssembly }

// IsPDB reports whether the asset holds debug symbols rather than code.
func (a AssemblyAsset) IsPDB() bool {
	return strings.EqualFold(path.Ext(a.Name), ".pdb")
}

// ResourceAsset is a satellite assembly for one culture.
type ResourceAsset struct {
	AssetOptions
	Culture string
}

func (ResourceAsset) Behavior() Behavior { return BehaviorResource }

type HeapAsset struct {
	AssetOptions
}

func (HeapAsset) Behavior() Behavior { return BehaviorHeap }

type ICUAsset struct {
	AssetOptions
}

func (ICUAsset) Behavior() Behavior { return BehaviorICU }

type VFSAsset struct {
	AssetOptions
}

func (VFSAsset) Behavior() Behavior { return BehaviorVFS }
