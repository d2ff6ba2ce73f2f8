package loader

import (
	"context"
	stderrors "errors"
	"path"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/dotnet-host/config"
	"github.com/wippyai/dotnet-host/errors"
)

// DefaultConcurrency is the number of assets fetched in parallel.
const DefaultConcurrency = 8

// Loaded is a successfully fetched asset.
type Loaded struct {
	Asset    config.Asset
	Location string
	Data     []byte
}

// Skipped is an asset whose failure was downgraded to a warning.
type Skipped struct {
	Asset config.Asset
	Err   error
}

// Result lists the outcome of every asset in configuration order.
type Result struct {
	Loaded  []Loaded
	Skipped []Skipped
}

// Loader fetches the assets of a configuration.
type Loader struct {
	fetcher     Fetcher
	logger      *zap.Logger
	concurrency int
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher replaces the default file/HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithFetchFunc replaces the default fetcher with fn.
func WithFetchFunc(fn FetchFunc) Option {
	return func(l *Loader) { l.fetcher = fn }
}

func WithLogger(lg *zap.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// New creates a loader that resolves local locations against baseDir.
func New(baseDir string, opts ...Option) *Loader {
	l := &Loader{
		logger:      Logger(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		l.fetcher = NewDefaultFetcher(baseDir)
	}
	return l
}

// Load fetches every asset of cfg. Optional assets, and .pdb assemblies when
// the configuration ignores pdb load errors, are skipped with a warning when
// they cannot be fetched. Any other failure aborts the load.
func (l *Loader) Load(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, errors.NotInitialized(errors.PhaseFetch, "configuration")
	}

	assets := cfg.Assets()
	loaded := make([]*Loaded, len(assets))
	skipped := make([]*Skipped, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, a := range assets {
		g.Go(func() error {
			locations := Locations(cfg, a)
			data, location, err := l.fetchFirst(gctx, a, locations)
			if err == nil {
				loaded[i] = &Loaded{Asset: a, Location: location, Data: data}
				return nil
			}

			if tolerated(cfg, a) && gctx.Err() == nil {
				l.logger.Warn("optional asset not loaded",
					zap.String("asset", a.Options().Name),
					zap.Stringer("behavior", a.Behavior()),
					zap.Strings("locations", locations),
					zap.Error(err))
				skipped[i] = &Skipped{Asset: a, Err: err}
				return nil
			}

			return errors.FetchFailed(a.Options().Name, err)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range assets {
		if loaded[i] != nil {
			res.Loaded = append(res.Loaded, *loaded[i])
		}
		if skipped[i] != nil {
			res.Skipped = append(res.Skipped, *skipped[i])
		}
	}

	l.logger.Info("assets loaded",
		zap.Int("loaded", len(res.Loaded)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// fetchFirst tries locations in order and returns the first success.
func (l *Loader) fetchFirst(ctx context.Context, a config.Asset, locations []string) ([]byte, string, error) {
	var errs []error
	for _, loc := range locations {
		data, err := l.fetcher.Fetch(ctx, loc)
		if err == nil {
			l.logger.Debug("asset fetched",
				zap.String("asset", a.Options().Name),
				zap.String("location", loc),
				zap.Int("bytes", len(data)))
			return data, loc, nil
		}
		l.logger.Debug("asset fetch attempt failed",
			zap.String("asset", a.Options().Name),
			zap.String("location", loc),
			zap.Error(err))
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", stderrors.Join(errs...)
}

func tolerated(cfg *config.Config, a config.Asset) bool {
	if a.Options().Optional {
		return true
	}
	if asm, ok := a.(config.AssemblyAsset); ok && asm.IsPDB() {
		return cfg.IgnorePDBLoadErrors()
	}
	return false
}

// LocalPath is where an asset lives relative to the application directory.
// Assemblies and satellite resources are under the assembly root, resources
// in a per-culture subdirectory.
func LocalPath(cfg *config.Config, a config.Asset) string {
	name := a.Options().Name
	switch v := a.(type) {
	case config.AssemblyAsset:
		return path.Join(cfg.AssemblyRoot(), name)
	case config.ResourceAsset:
		return path.Join(cfg.AssemblyRoot(), v.Culture, name)
	}
	return name
}

// Locations lists the places an asset is looked up, in order. Assets that
// may load remotely try each remote source; the source "./" stands for the
// local path.
func Locations(cfg *config.Config, a config.Asset) []string {
	local := LocalPath(cfg, a)
	sources := cfg.RemoteSources()
	if !a.Options().LoadRemote || len(sources) == 0 {
		return []string{local}
	}

	remote := a.Options().Name
	if r, ok := a.(config.ResourceAsset); ok {
		remote = r.Culture + "/" + remote
	}

	locations := make([]string, 0, len(sources))
	for _, src := range sources {
		if src == "./" {
			locations = append(locations, local)
		} else {
			locations = append(locations, src+remote)
		}
	}
	return locations
}
