package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/domain/repository"
)

// StorageResolver resolves keys to presigned URLs of <prefix><key>.mp4 objects.
type StorageResolver struct {
	storage repository.ObjectStorage
	prefix  string
	expiry  time.Duration
}

var _ Resolver = (*StorageResolver)(nil)

// NewStorageResolver creates a resolver backed by object storage.
func NewStorageResolver(storage repository.ObjectStorage, prefix string, expiry time.Duration) *StorageResolver {
	return &StorageResolver{storage: storage, prefix: prefix, expiry: expiry}
}

func (r *StorageResolver) Resolve(ctx context.Context, key model.VideoKey) (Handle, error) {
	if err := key.Validate(); err != nil {
		return Handle{}, fmt.Errorf("%w: %q", model.ErrResourceNotFound, key)
	}

	objectKey := r.objectKey(key)
	exists, err := r.storage.Exists(ctx, objectKey)
	if err != nil {
		return Handle{}, fmt.Errorf("check remote asset: %w", err)
	}
	if !exists {
		return Handle{}, fmt.Errorf("%w: object %s", model.ErrResourceNotFound, objectKey)
	}

	url, err := r.storage.GeneratePresignedDownloadURL(ctx, objectKey, r.expiry)
	if err != nil {
		return Handle{}, fmt.Errorf("presign remote asset: %w", err)
	}

	return Handle{Key: key, Location: url, Source: SourceStorage}, nil
}

func (r *StorageResolver) objectKey(key model.VideoKey) string {
	return r.prefix + key.String() + Extension
}
