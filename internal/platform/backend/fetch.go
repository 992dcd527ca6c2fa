package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDownloadUnsupported is returned by Fetcher.Download when the underlying
// Getter cannot stream files.
var ErrDownloadUnsupported = errors.New("getter does not support downloads")

// Downloader streams backend-generated files.
type Downloader interface {
	Download(ctx context.Context, path string) (*File, error)
}

// Result is the settled outcome of one logical request: a payload on success,
// the joined attempt errors on failure.
type Result struct {
	Payload  json.RawMessage
	Path     string // last path attempted
	Attempts int
	Err      error
}

// OK reports whether the request produced a payload.
func (r Result) OK() bool {
	return r.Err == nil
}

// Fetcher applies the two-attempt policy: the prefixed path first, then the
// bare path. The first success wins.
type Fetcher struct {
	getter Getter
	prefix string
}

// NewFetcher creates a Fetcher. An empty prefix yields a single attempt.
func NewFetcher(g Getter, prefix string) *Fetcher {
	return &Fetcher{getter: g, prefix: strings.TrimRight(prefix, "/")}
}

// Candidates returns the paths tried for path, in order.
func (f *Fetcher) Candidates(path string) []string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if f.prefix == "" {
		return []string{path}
	}
	return []string{f.prefix + path, path}
}

// Fetch runs the policy for path. It never panics on failure and never
// returns early while an attempt is pending.
func (f *Fetcher) Fetch(ctx context.Context, path string) Result {
	var (
		res  Result
		errs []error
	)
	for _, p := range f.Candidates(path) {
		res.Attempts++
		res.Path = p
		body, err := f.getter.GetJSON(ctx, p)
		if err == nil {
			res.Payload = body
			return res
		}
		errs = append(errs, err)
	}
	res.Err = errors.Join(errs...)
	return res
}

// Download streams a backend-generated file with the same fallback policy.
func (f *Fetcher) Download(ctx context.Context, path string) (*File, error) {
	d, ok := f.getter.(Downloader)
	if !ok {
		return nil, ErrDownloadUnsupported
	}
	var errs []error
	for _, p := range f.Candidates(path) {
		file, err := d.Download(ctx, p)
		if err == nil {
			return file, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("download %s: %w", path, errors.Join(errs...))
}
