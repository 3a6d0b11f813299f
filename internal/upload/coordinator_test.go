package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/inventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/metrics"
)

func newTestCoordinator(t *testing.T, store *stubStore, concurrency int) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(CoordinatorParams{
		Store:       store,
		Bucket:      "media",
		PartSize:    config.MinPartSize,
		Concurrency: concurrency,
		Metrics:     metrics.NewUploadMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c
}

func TestUploadTwelveMiBCompletesThreeOrderedParts(t *testing.T) {
	store := newStubStore()
	c := newTestCoordinator(t, store, 0)

	payload := make([]byte, 12*1024*1024)
	ref, err := c.Upload(context.Background(), payload, "video/mp4", "input/a.mp4")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref != "https://blobs.example.com/input/a.mp4" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if store.completes != 1 || store.aborts != 0 {
		t.Fatalf("expected one finalize and no abort, got %d/%d", store.completes, store.aborts)
	}
	if len(store.finalized) != 3 {
		t.Fatalf("expected 3 finalized parts, got %d", len(store.finalized))
	}
	for i, p := range store.finalized {
		if p.PartNumber != int32(i+1) {
			t.Fatalf("finalized part %d has number %d", i, p.PartNumber)
		}
	}
	if got := len(store.uploaded[3]); got != 2*1024*1024 {
		t.Fatalf("expected 2 MiB final part, got %d", got)
	}
}

func TestUploadSmallPayloadUsesSinglePart(t *testing.T) {
	store := newStubStore()
	c := newTestCoordinator(t, store, 1)

	if _, err := c.Upload(context.Background(), []byte("tiny"), "video/mp4", "input/b.mp4"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := store.partNumbers(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected single part 1, got %v", got)
	}
}

func TestUploadRejectsEmptyPayloadWithoutRemoteCalls(t *testing.T) {
	store := newStubStore()
	c := newTestCoordinator(t, store, 0)

	_, err := c.Upload(context.Background(), nil, "video/mp4", "input/c.mp4")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.begins != 0 {
		t.Fatalf("expected no begin call, got %d", store.begins)
	}
}

func TestUploadPartFailureAbortsOnce(t *testing.T) {
	store := newStubStore()
	store.failParts = map[int32]error{2: errBoom}
	c := newTestCoordinator(t, store, 0)

	payload := make([]byte, 12*1024*1024)
	_, err := c.Upload(context.Background(), payload, "video/mp4", "input/d.mp4")
	if !pkgerrors.HasCode(err, pkgerrors.CodePartialUpload) {
		t.Fatalf("expected partial upload error, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected part error to be wrapped, got %v", err)
	}
	if store.aborts != 1 {
		t.Fatalf("expected exactly one abort, got %d", store.aborts)
	}
	if store.completes != 0 {
		t.Fatalf("expected no finalize, got %d", store.completes)
	}
	if got := store.partNumbers(); len(got) != 2 {
		t.Fatalf("expected sibling parts to finish, got %v", got)
	}
}

func TestUploadCombinesEveryPartError(t *testing.T) {
	store := newStubStore()
	store.failParts = map[int32]error{1: errBoom, 3: errors.New("reset")}
	c := newTestCoordinator(t, store, 2)

	payload := make([]byte, 12*1024*1024)
	_, err := c.Upload(context.Background(), payload, "video/mp4", "input/e.mp4")
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if n := len(multierr.Errors(coded.Unwrap())); n != 2 {
		t.Fatalf("expected 2 combined part errors, got %d", n)
	}
	if store.aborts != 1 {
		t.Fatalf("expected exactly one abort, got %d", store.aborts)
	}
}

func TestUploadFinalizeFailureAbortsOnce(t *testing.T) {
	store := newStubStore()
	store.completeErr = errBoom
	c := newTestCoordinator(t, store, 0)

	_, err := c.Upload(context.Background(), []byte("payload"), "video/mp4", "input/f.mp4")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if store.aborts != 1 {
		t.Fatalf("expected exactly one abort, got %d", store.aborts)
	}
}

func TestUploadAbortFailureKeepsOriginalError(t *testing.T) {
	store := newStubStore()
	store.failParts = map[int32]error{1: errBoom}
	store.abortErr = errors.New("abort failed")
	c := newTestCoordinator(t, store, 0)

	_, err := c.Upload(context.Background(), []byte("payload"), "video/mp4", "input/g.mp4")
	if !pkgerrors.HasCode(err, pkgerrors.CodePartialUpload) {
		t.Fatalf("expected partial upload error, got %v", err)
	}
	if errors.Is(err, store.abortErr) {
		t.Fatal("abort error must not replace the part error")
	}
}

func TestUploadBeginFailureSkipsAbort(t *testing.T) {
	store := newStubStore()
	store.beginErr = errBoom
	c := newTestCoordinator(t, store, 0)

	_, err := c.Upload(context.Background(), []byte("payload"), "video/mp4", "input/h.mp4")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if store.aborts != 0 || store.completes != 0 {
		t.Fatalf("expected no abort or finalize, got %d/%d", store.aborts, store.completes)
	}
}

func TestUploadAbortIgnoresCallerCancellation(t *testing.T) {
	store := newStubStore()
	store.failParts = map[int32]error{1: errBoom}
	c := newTestCoordinator(t, store, 0)

	ctx, cancel := context.WithCancel(context.Background())
	store.failParts[1] = context.Canceled
	cancel()

	_, _ = c.Upload(ctx, []byte("payload"), "video/mp4", "input/i.mp4")
	if store.aborts != 1 {
		t.Fatalf("expected abort, got %d", store.aborts)
	}
	if err := store.abortErrAtCall; err != nil {
		t.Fatalf("abort context should not inherit cancellation, got %v", err)
	}
}

func TestNewCoordinatorValidatesParams(t *testing.T) {
	if _, err := NewCoordinator(CoordinatorParams{Bucket: "media"}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewCoordinator(CoordinatorParams{Store: newStubStore()}); err == nil {
		t.Fatal("expected error without bucket")
	}
	if _, err := NewCoordinator(CoordinatorParams{Store: newStubStore(), Bucket: "media", Concurrency: -1}); err == nil {
		t.Fatal("expected error for negative concurrency")
	}
	c, err := NewCoordinator(CoordinatorParams{Store: newStubStore(), Bucket: "media"})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	if c.partSize != config.MinPartSize {
		t.Fatalf("expected default part size, got %d", c.partSize)
	}
}
