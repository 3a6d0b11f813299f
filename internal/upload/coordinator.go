package upload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/inventory-backend/pkg/blobstore"
	"github.com/angelmondragon/inventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/metrics"
)

const abortTimeout = 30 * time.Second

// Uploader stores a payload under key and returns its durable reference.
type Uploader interface {
	Upload(ctx context.Context, payload []byte, contentType, key string) (string, error)
}

// CoordinatorParams wires a Coordinator.
type CoordinatorParams struct {
	Store       blobstore.Store
	Bucket      string
	PartSize    int64
	Concurrency int
	Metrics     *metrics.UploadMetrics
	Logger      *logger.Logger
}

// Coordinator drives the begin, transfer, finalize protocol of a multipart
// upload and guarantees the remote session is completed or aborted before
// Upload returns.
type Coordinator struct {
	store       blobstore.Store
	bucket      string
	partSize    int64
	concurrency int
	metrics     *metrics.UploadMetrics
	logg        *logger.Logger
}

// NewCoordinator validates params and applies defaults.
func NewCoordinator(p CoordinatorParams) (*Coordinator, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if strings.TrimSpace(p.Bucket) == "" {
		return nil, fmt.Errorf("bucket required")
	}
	if p.PartSize == 0 {
		p.PartSize = config.MinPartSize
	}
	if p.PartSize < 0 {
		return nil, fmt.Errorf("part size must be positive")
	}
	if p.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative")
	}
	if p.Logger == nil {
		p.Logger = logger.New(logger.Options{ServiceName: "upload", Output: io.Discard})
	}
	return &Coordinator{
		store:       p.Store,
		bucket:      p.Bucket,
		partSize:    p.PartSize,
		concurrency: p.Concurrency,
		metrics:     p.Metrics,
		logg:        p.Logger,
	}, nil
}

// Upload transfers payload as a multipart upload. Any part or finalize failure
// aborts the session exactly once before the error is returned.
func (c *Coordinator) Upload(ctx context.Context, payload []byte, contentType, key string) (string, error) {
	if len(payload) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payload is empty")
	}
	if strings.TrimSpace(key) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "upload key is required")
	}

	parts := splitParts(payload, c.partSize)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"upload_key": key,
		"size_bytes": len(payload),
		"parts":      len(parts),
	})
	start := time.Now()

	session, err := c.store.BeginMultipart(ctx, c.bucket, key, contentType)
	if err != nil {
		c.metrics.ObserveSession(metrics.SessionBeginFailed, len(payload), time.Since(start))
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "begin multipart upload")
	}
	ctx = c.logg.WithField(ctx, "upload_id", session.UploadID)

	completed, err := c.transferParts(ctx, session, parts)
	if err != nil {
		c.abort(ctx, session)
		c.metrics.ObserveSession(metrics.SessionAborted, len(payload), time.Since(start))
		return "", pkgerrors.Wrap(pkgerrors.CodePartialUpload, err, "upload part failed").
			WithDetails(map[string]any{
				"failed_parts": len(multierr.Errors(err)),
				"total_parts":  len(parts),
			})
	}

	reference, err := c.store.CompleteMultipart(ctx, session, completed)
	if err != nil {
		c.abort(ctx, session)
		c.metrics.ObserveSession(metrics.SessionAborted, len(payload), time.Since(start))
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "complete multipart upload")
	}

	c.metrics.ObserveSession(metrics.SessionCompleted, len(payload), time.Since(start))
	c.logg.Info(ctx, "upload.completed")
	return reference, nil
}

// transferParts uploads every part and waits for all of them, even after a
// failure. The returned slice is ordered by part number.
func (c *Coordinator) transferParts(ctx context.Context, session blobstore.Session, parts []part) ([]blobstore.CompletedPart, error) {
	completed := make([]blobstore.CompletedPart, len(parts))
	errs := make([]error, len(parts))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, p := range parts {
		g.Go(func() error {
			confirmed, err := c.store.UploadPart(ctx, session, p.Number, p.Body)
			c.metrics.ObservePart(err == nil)
			if err != nil {
				errs[i] = fmt.Errorf("part %d: %w", p.Number, err)
				return nil
			}
			confirmed.PartNumber = p.Number
			completed[i] = confirmed
			return nil
		})
	}
	_ = g.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return completed, nil
}

// abort runs detached from the caller's cancellation so a timed-out request
// still releases the remote session.
func (c *Coordinator) abort(ctx context.Context, session blobstore.Session) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()
	if err := c.store.AbortMultipart(abortCtx, session); err != nil {
		c.logg.Error(ctx, "upload.abort_failed", err)
		return
	}
	c.logg.Warn(ctx, "upload.aborted")
}
