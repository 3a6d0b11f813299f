package upload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/angelmondragon/inventory-backend/pkg/blobstore"
)

type stubStore struct {
	mu sync.Mutex

	beginErr    error
	completeErr error
	abortErr    error
	failParts   map[int32]error

	begins         int
	completes      int
	aborts         int
	uploaded       map[int32][]byte
	finalized      []blobstore.CompletedPart
	abortErrAtCall error
}

func newStubStore() *stubStore {
	return &stubStore{uploaded: map[int32][]byte{}}
}

func (s *stubStore) GetObject(context.Context, string, string) ([]byte, error) {
	return nil, blobstore.ErrNotFound
}

func (s *stubStore) BeginMultipart(_ context.Context, bucket, key, _ string) (blobstore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	if s.beginErr != nil {
		return blobstore.Session{}, s.beginErr
	}
	return blobstore.Session{Bucket: bucket, Key: key, UploadID: "upload-1"}, nil
}

func (s *stubStore) UploadPart(_ context.Context, _ blobstore.Session, partNumber int32, body []byte) (blobstore.CompletedPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failParts[partNumber]; err != nil {
		return blobstore.CompletedPart{}, err
	}
	s.uploaded[partNumber] = append([]byte(nil), body...)
	return blobstore.CompletedPart{PartNumber: partNumber, ETag: fmt.Sprintf("etag-%d", partNumber)}, nil
}

func (s *stubStore) CompleteMultipart(_ context.Context, session blobstore.Session, parts []blobstore.CompletedPart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes++
	s.finalized = append([]blobstore.CompletedPart(nil), parts...)
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return "https://blobs.example.com/" + session.Key, nil
}

func (s *stubStore) AbortMultipart(ctx context.Context, _ blobstore.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborts++
	s.abortErrAtCall = ctx.Err()
	return s.abortErr
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) partNumbers() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	numbers := make([]int32, 0, len(s.uploaded))
	for n := range s.uploaded {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}

var errBoom = errors.New("boom")
