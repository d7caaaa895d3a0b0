package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/hszk-dev/loopvideo/internal/domain/repository"
)

// mockMinioClient implements minioClient interface for testing.
type mockMinioClient struct {
	bucketExistsFunc       func(ctx context.Context, bucketName string) (bool, error)
	presignedGetObjectFunc func(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	statObjectFunc         func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

func (m *mockMinioClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	if m.bucketExistsFunc != nil {
		return m.bucketExistsFunc(ctx, bucketName)
	}
	return true, nil
}

func (m *mockMinioClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	if m.presignedGetObjectFunc != nil {
		return m.presignedGetObjectFunc(ctx, bucketName, objectName, expiry, reqParams)
	}
	return nil, nil
}

func (m *mockMinioClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if m.statObjectFunc != nil {
		return m.statObjectFunc(ctx, bucketName, objectName, opts)
	}
	return minio.ObjectInfo{}, nil
}

func TestNewClientWithMinioClient(t *testing.T) {
	tests := []struct {
		name       string
		mockClient *mockMinioClient
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:       "successful initialization",
			mockClient: &mockMinioClient{},
		},
		{
			name: "bucket does not exist",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, nil
				},
			},
			wantErr: repository.ErrBucketNotFound,
		},
		{
			name: "connection error",
			mockClient: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, errors.New("connection refused")
				},
			},
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newClientWithMinioClient(context.Background(), tt.mockClient, tt.mockClient, "videos")

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
			case tt.wantAnyErr:
				if err == nil {
					t.Error("expected error, got nil")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if client.Bucket() != "videos" {
					t.Errorf("Bucket() = %q, want videos", client.Bucket())
				}
			}
		})
	}
}

func TestClient_GeneratePresignedDownloadURL(t *testing.T) {
	var gotObject string
	var gotExpiry time.Duration
	internal := &mockMinioClient{
		presignedGetObjectFunc: func(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
			t.Error("presigned URL must come from the public client")
			return nil, nil
		},
	}
	public := &mockMinioClient{
		presignedGetObjectFunc: func(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
			gotObject, gotExpiry = objectName, expiry
			return url.Parse("https://cdn.example.com/videos/" + objectName + "?X-Amz-Signature=abc")
		},
	}

	client, err := newClientWithMinioClient(context.Background(), internal, public, "videos")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := client.GeneratePresignedDownloadURL(context.Background(), "loops/intro.mp4", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://cdn.example.com/videos/loops/intro.mp4?X-Amz-Signature=abc" {
		t.Errorf("unexpected URL: %s", got)
	}
	if gotObject != "loops/intro.mp4" || gotExpiry != time.Hour {
		t.Errorf("presigned %q for %v", gotObject, gotExpiry)
	}

	public.presignedGetObjectFunc = func(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
		return nil, errors.New("signature error")
	}
	if _, err := client.GeneratePresignedDownloadURL(context.Background(), "intro.mp4", time.Hour); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestClient_Exists(t *testing.T) {
	tests := []struct {
		name    string
		statErr error
		want    bool
		wantErr bool
	}{
		{name: "object exists", want: true},
		{name: "object missing", statErr: minio.ErrorResponse{Code: "NoSuchKey"}, want: false},
		{name: "stat failure", statErr: errors.New("timeout"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockMinioClient{
				statObjectFunc: func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
					return minio.ObjectInfo{Key: objectName}, tt.statErr
				},
			}
			client, err := newClientWithMinioClient(context.Background(), mock, mock, "videos")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := client.Exists(context.Background(), "intro.mp4")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Exists() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_Ping(t *testing.T) {
	calls := 0
	mock := &mockMinioClient{
		bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
			calls++
			if calls > 1 {
				return false, errors.New("connection reset")
			}
			return true, nil
		},
	}
	client, err := newClientWithMinioClient(context.Background(), mock, mock, "videos")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := client.Ping(context.Background()); err == nil {
		t.Error("expected ping error, got nil")
	}
}
