package host

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/dotnet-host/loader"
)

// DefaultStartFunctions are called after heap assets are in place.
var DefaultStartFunctions = []string{"_initialize", "_start"}

type options struct {
	logger           *zap.Logger
	stdout           io.Writer
	stderr           io.Writer
	onLoaded         func(*Runtime)
	baseDir          string
	loaderOpts       []loader.Option
	startFunctions   []string
	memoryLimitPages uint32
}

// Option configures Boot.
type Option func(*options)

// WithBaseDir sets the directory local asset locations resolve against.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFetchFunc replaces how every asset is retrieved.
func WithFetchFunc(fn loader.FetchFunc) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, loader.WithFetchFunc(fn)) }
}

// WithLoaderOptions passes options through to the asset loader.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, opts...) }
}

// WithOnLoaded registers a callback invoked once the runtime has booted.
func WithOnLoaded(fn func(*Runtime)) Option {
	return func(o *options) { o.onLoaded = fn }
}

func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithStartFunctions overrides the exports called after instantiation.
// Missing exports are skipped.
func WithStartFunctions(names ...string) Option {
	return func(o *options) { o.startFunctions = names }
}

// WithMemoryLimitPages caps guest memory in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *options) { o.memoryLimitPages = pages }
}
