// Package blobstore adapts S3-compatible object stores to the narrow surface
// the upload coordinator and enrichment engine need.
package blobstore

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotFound is returned by GetObject when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Session identifies an open multipart upload.
type Session struct {
	Bucket   string
	Key      string
	UploadID string
}

// CompletedPart is a part confirmed by the store.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// Store is implemented by S3Store and MinioStore.
type Store interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	BeginMultipart(ctx context.Context, bucket, key, contentType string) (Session, error)
	UploadPart(ctx context.Context, session Session, partNumber int32, body []byte) (CompletedPart, error)
	// CompleteMultipart finalizes the session; parts must be ordered by part number.
	CompleteMultipart(ctx context.Context, session Session, parts []CompletedPart) (string, error)
	AbortMultipart(ctx context.Context, session Session) error
	Ping(ctx context.Context) error
}

// ObjectURL joins a public base URL and an object key, escaping each key segment.
func ObjectURL(baseURL, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}
