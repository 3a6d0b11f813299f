package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/angelmondragon/inventory-backend/pkg/config"
)

type minioCore interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PutObjectPart(ctx context.Context, bucket, object, uploadID string, partID int, data io.Reader, size int64, opts minio.PutObjectPartOptions) (minio.ObjectPart, error)
	CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []minio.CompletePart, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, http.Header, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// MinioStore implements Store on the low-level minio-go multipart API.
type MinioStore struct {
	core          minioCore
	bucket        string
	publicBaseURL string
	publicRead    bool
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(ctx context.Context, mcfg config.MinioConfig, blob config.BlobConfig) (*MinioStore, error) {
	core, err := minio.NewCore(mcfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mcfg.AccessKey, mcfg.SecretKey, ""),
		Secure: mcfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	exists, err := core.BucketExists(ctx, blob.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := core.MakeBucket(ctx, blob.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	base := blob.PublicBaseURL
	if base == "" {
		base = core.EndpointURL().String() + "/" + blob.Bucket
	}
	return &MinioStore{
		core:          core,
		bucket:        blob.Bucket,
		publicBaseURL: base,
		publicRead:    blob.PublicRead,
	}, nil
}

func (m *MinioStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	body, _, _, err := m.core.GetObject(ctx, m.bucketOr(bucket), key, minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (m *MinioStore) BeginMultipart(ctx context.Context, bucket, key, contentType string) (Session, error) {
	uploadID, err := m.core.NewMultipartUpload(ctx, m.bucketOr(bucket), key, m.putOptions(contentType))
	if err != nil {
		return Session{}, fmt.Errorf("create multipart upload: %w", err)
	}
	return Session{Bucket: m.bucketOr(bucket), Key: key, UploadID: uploadID}, nil
}

func (m *MinioStore) UploadPart(ctx context.Context, session Session, partNumber int32, body []byte) (CompletedPart, error) {
	part, err := m.core.PutObjectPart(ctx, session.Bucket, session.Key, session.UploadID,
		int(partNumber), bytes.NewReader(body), int64(len(body)), minio.PutObjectPartOptions{})
	if err != nil {
		return CompletedPart{}, fmt.Errorf("upload part %d: %w", partNumber, err)
	}
	return CompletedPart{PartNumber: partNumber, ETag: part.ETag}, nil
}

func (m *MinioStore) CompleteMultipart(ctx context.Context, session Session, parts []CompletedPart) (string, error) {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: int(part.PartNumber), ETag: part.ETag})
	}
	info, err := m.core.CompleteMultipartUpload(ctx, session.Bucket, session.Key, session.UploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("complete multipart upload: %w", err)
	}
	if info.Location != "" {
		return info.Location, nil
	}
	return ObjectURL(m.publicBaseURL, session.Key), nil
}

func (m *MinioStore) AbortMultipart(ctx context.Context, session Session) error {
	if err := m.core.AbortMultipartUpload(ctx, session.Bucket, session.Key, session.UploadID); err != nil {
		return fmt.Errorf("abort multipart upload: %w", err)
	}
	return nil
}

func (m *MinioStore) Ping(ctx context.Context) error {
	exists, err := m.core.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}

func (m *MinioStore) putOptions(contentType string) minio.PutObjectOptions {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if m.publicRead {
		opts.UserMetadata = map[string]string{"x-amz-acl": "public-read"}
	}
	return opts
}

func (m *MinioStore) bucketOr(bucket string) string {
	if bucket == "" {
		return m.bucket
	}
	return bucket
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
