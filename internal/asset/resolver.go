// Package asset resolves logical video keys to loadable resource handles.
package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
)

// Extension is the fixed file extension of bundled video assets.
const Extension = ".mp4"

// Source identifies where a handle was resolved from.
type Source string

const (
	SourceBundle  Source = "bundle"
	SourceStorage Source = "storage"
)

// Handle is a loadable reference to a video asset.
type Handle struct {
	Key model.VideoKey
	// Location is a local file path for bundle assets or a URL for remote ones.
	Location string
	Source   Source
}

// Resolver locates the asset for a key.
// Implementations are synchronous and keep no cache of their own.
// A missing asset is reported as an error wrapping model.ErrResourceNotFound.
type Resolver interface {
	Resolve(ctx context.Context, key model.VideoKey) (Handle, error)
}

// BundleResolver resolves keys to <dir>/<key>.mp4.
type BundleResolver struct {
	dir string
}

var _ Resolver = (*BundleResolver)(nil)

// NewBundleResolver creates a resolver over the given bundle directory.
func NewBundleResolver(dir string) *BundleResolver {
	return &BundleResolver{dir: dir}
}

// Dir returns the bundle directory.
func (r *BundleResolver) Dir() string {
	return r.dir
}

// Resolve checks that <dir>/<key>.mp4 exists and is a regular file.
func (r *BundleResolver) Resolve(ctx context.Context, key model.VideoKey) (Handle, error) {
	if err := key.Validate(); err != nil {
		return Handle{}, fmt.Errorf("%w: %q", model.ErrResourceNotFound, key)
	}

	path := filepath.Join(r.dir, key.String()+Extension)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Handle{}, fmt.Errorf("%w: %s", model.ErrResourceNotFound, path)
		}
		return Handle{}, fmt.Errorf("stat bundle asset: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Handle{}, fmt.Errorf("%w: %s is not a regular file", model.ErrResourceNotFound, path)
	}

	return Handle{Key: key, Location: path, Source: SourceBundle}, nil
}

// KeyFromPath maps a bundle file path back to its key.
// ok is false for files that are not video assets.
func KeyFromPath(path string) (model.VideoKey, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != Extension {
		return "", false
	}
	key := model.VideoKey(base[:len(base)-len(Extension)])
	if key.Validate() != nil {
		return "", false
	}
	return key, true
}

// ChainResolver tries each resolver in order and returns the first hit.
// A NotFound result moves on to the next resolver; any other error stops the chain.
type ChainResolver struct {
	resolvers []Resolver
}

var _ Resolver = (*ChainResolver)(nil)

// NewChainResolver creates a resolver chain. Nil entries are skipped.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	chain := make([]Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		if r != nil {
			chain = append(chain, r)
		}
	}
	return &ChainResolver{resolvers: chain}
}

func (c *ChainResolver) Resolve(ctx context.Context, key model.VideoKey) (Handle, error) {
	for _, r := range c.resolvers {
		h, err := r.Resolve(ctx, key)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, model.ErrResourceNotFound) {
			return Handle{}, err
		}
	}
	return Handle{}, fmt.Errorf("%w: %q", model.ErrResourceNotFound, key)
}
