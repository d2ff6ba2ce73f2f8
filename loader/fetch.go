package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultHTTPTimeout bounds a remote fetch when the context has no deadline.
const DefaultHTTPTimeout = 30 * time.Second

// Fetcher retrieves the bytes of an asset location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetchFunc adapts a function to Fetcher. It is the hook for replacing the
// default retrieval of every asset.
type FetchFunc func(ctx context.Context, location string) ([]byte, error)

func (f FetchFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// StatusError is returned for a remote fetch that did not answer 200.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// DefaultFetcher reads relative locations from a base directory and
// http(s) URLs over the network.
type DefaultFetcher struct {
	client  *fasthttp.Client
	baseDir string
	timeout time.Duration
}

func NewDefaultFetcher(baseDir string) *DefaultFetcher {
	return &DefaultFetcher{
		baseDir: baseDir,
		timeout: DefaultHTTPTimeout,
		client:  &fasthttp.Client{Name: "dotnet-host"},
	}
}

func (f *DefaultFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isRemote(location) {
		return f.fetchHTTP(ctx, location)
	}
	return f.fetchFile(location)
}

func (f *DefaultFetcher) fetchFile(location string) ([]byte, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(location, "./"))
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("location %q escapes the application directory", location)
	}
	return os.ReadFile(filepath.Join(f.baseDir, rel))
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(f.timeout)
	}

	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, &StatusError{URL: url, Code: code}
	}

	// resp is released on return; the body must be copied out.
	return append([]byte(nil), resp.Body()...), nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
