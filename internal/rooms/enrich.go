package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/inventory-backend/pkg/blobstore"
	"github.com/angelmondragon/inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/metrics"
	"github.com/angelmondragon/inventory-backend/pkg/types"
)

// Record resolution sources reported to metrics.
const (
	sourceNoJob    = "no_job"
	sourceExisting = "existing"
	sourceError    = "error_artifact"
	sourceResult   = "result_artifact"
	sourceNone     = "none"
)

type objectGetter interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// EnricherParams wires an Enricher.
type EnricherParams struct {
	Store        objectGetter
	Bucket       string
	OutputPrefix string
	Concurrency  int
	Metrics      *metrics.EnrichmentMetrics
	Logger       *logger.Logger
}

// Enricher attaches the output of the external processing job to rooms.
type Enricher struct {
	store        objectGetter
	bucket       string
	outputPrefix string
	concurrency  int
	metrics      *metrics.EnrichmentMetrics
	logg         *logger.Logger
}

// NewEnricher validates params. An empty OutputPrefix defaults to "output".
func NewEnricher(p EnricherParams) (*Enricher, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if strings.TrimSpace(p.Bucket) == "" {
		return nil, fmt.Errorf("bucket required")
	}
	if p.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative")
	}
	prefix := strings.Trim(strings.TrimSpace(p.OutputPrefix), "/")
	if prefix == "" {
		prefix = "output"
	}
	if p.Logger == nil {
		p.Logger = logger.New(logger.Options{ServiceName: "enrichment", Output: io.Discard})
	}
	return &Enricher{
		store:        p.Store,
		bucket:       p.Bucket,
		outputPrefix: prefix,
		concurrency:  p.Concurrency,
		metrics:      p.Metrics,
		logg:         p.Logger,
	}, nil
}

// EnrichAll enriches every room concurrently and returns them in input
// order. If ctx ends before every room is resolved the call fails without
// partial results.
func (e *Enricher) EnrichAll(ctx context.Context, rooms []Room) ([]Room, error) {
	out := make([]Room, len(rooms))

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, room := range rooms {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.Enrich(ctx, room)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enrichment interrupted")
	}
	return out, nil
}

// Enrich resolves the accessories of one room. A room that already carries
// accessories keeps them untouched.
func (e *Enricher) Enrich(ctx context.Context, room Room) Room {
	if room.JobID == "" {
		e.metrics.ObserveRecord(sourceNoJob)
		return room
	}
	if room.Accessories.IsSet() {
		e.metrics.ObserveRecord(sourceExisting)
		return room
	}

	ctx = e.logg.WithJobID(e.logg.WithRoomID(ctx, room.RoomID), room.JobID)

	var errorText, resultText string
	var wg sync.WaitGroup
	wg.Go(func() {
		errorText = e.fetchArtifact(ctx, room.JobID, enums.ArtifactKindError)
	})
	wg.Go(func() {
		resultText = e.fetchArtifact(ctx, room.JobID, enums.ArtifactKindResult)
	})
	wg.Wait()

	derived, source := deriveAccessories(errorText, resultText)
	e.metrics.ObserveRecord(source)
	if derived != nil {
		room.Accessories = types.Some(derived)
	}
	return room
}

// artifactKey returns <prefix>/<jobID>/<kind>.txt.
func (e *Enricher) artifactKey(jobID string, kind enums.ArtifactKind) string {
	return path.Join(e.outputPrefix, jobID, kind.FileName())
}

// fetchArtifact returns the trimmed artifact text. Missing objects and
// transient failures both yield "".
func (e *Enricher) fetchArtifact(ctx context.Context, jobID string, kind enums.ArtifactKind) string {
	key := e.artifactKey(jobID, kind)
	body, err := e.store.GetObject(ctx, e.bucket, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			e.metrics.ObserveFetch(kind.String(), "miss")
			return ""
		}
		e.metrics.ObserveFetch(kind.String(), "error")
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{"artifact_key": key, "error": err.Error()}), "enrichment.artifact_fetch_failed")
		return ""
	}
	text := string(bytes.TrimSpace(body))
	if text == "" {
		e.metrics.ObserveFetch(kind.String(), "miss")
		return ""
	}
	e.metrics.ObserveFetch(kind.String(), "hit")
	return text
}

// deriveAccessories applies the artifact precedence: error content wins over
// result content, each parsed as JSON or wrapped under its kind. The result
// artifact is not consulted when the error artifact has content.
func deriveAccessories(errorText, resultText string) (json.RawMessage, string) {
	if errorText != "" {
		return parseOrWrap(errorText, enums.ArtifactKindError), sourceError
	}
	if resultText != "" {
		return parseOrWrap(resultText, enums.ArtifactKindResult), sourceResult
	}
	return nil, sourceNone
}

// parseOrWrap returns text when it is valid JSON, else {"<kind>": text}. A
// literal null parses to no accessories.
func parseOrWrap(text string, kind enums.ArtifactKind) json.RawMessage {
	if json.Valid([]byte(text)) {
		if text == "null" {
			return nil
		}
		return json.RawMessage(text)
	}
	wrapped, _ := json.Marshal(map[string]string{kind.String(): text})
	return wrapped
}
