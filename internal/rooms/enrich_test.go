package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/inventory-backend/pkg/blobstore"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/metrics"
	"github.com/angelmondragon/inventory-backend/pkg/types"
)

type artifactStub struct {
	mu      sync.Mutex
	objects map[string]string
	errs    map[string]error
	calls   []string

	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (a *artifactStub) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	cur := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		prev := a.peak.Load()
		if cur <= prev || a.peak.CompareAndSwap(prev, cur) {
			break
		}
	}
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, bucket+"/"+key)
	if err := a.errs[key]; err != nil {
		return nil, err
	}
	body, ok := a.objects[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return []byte(body), nil
}

func newTestEnricher(t *testing.T, store objectGetter, concurrency int) *Enricher {
	t.Helper()
	e, err := NewEnricher(EnricherParams{
		Store:       store,
		Bucket:      "media",
		Concurrency: concurrency,
		Metrics:     metrics.NewEnrichmentMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("NewEnricher: %v", err)
	}
	return e
}

func accessoriesJSON(t *testing.T, room Room) string {
	t.Helper()
	raw, ok := room.Accessories.Get()
	if !ok {
		return ""
	}
	return string(raw)
}

func TestEnrichArtifactPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		objects map[string]string
		want    string
	}{
		{
			name:    "error json",
			objects: map[string]string{"output/J/error.txt": `{"code":42}`, "output/J/result.txt": `{"ok":true}`},
			want:    `{"code":42}`,
		},
		{
			name:    "error text wraps",
			objects: map[string]string{"output/J/error.txt": "oops"},
			want:    `{"error":"oops"}`,
		},
		{
			name:    "error text trimmed",
			objects: map[string]string{"output/J/error.txt": "  oops \n"},
			want:    `{"error":"oops"}`,
		},
		{
			name:    "result json",
			objects: map[string]string{"output/J/result.txt": `[1,2,3]`},
			want:    `[1,2,3]`,
		},
		{
			name:    "result text wraps",
			objects: map[string]string{"output/J/result.txt": "sofa, lamp"},
			want:    `{"result":"sofa, lamp"}`,
		},
		{
			name:    "blank error falls through to result",
			objects: map[string]string{"output/J/error.txt": " \n\t", "output/J/result.txt": `"done"`},
			want:    `"done"`,
		},
		{
			name:    "falsy json is kept",
			objects: map[string]string{"output/J/result.txt": `false`},
			want:    `false`,
		},
		{
			name:    "null error yields nothing",
			objects: map[string]string{"output/J/error.txt": "null", "output/J/result.txt": `{"ok":true}`},
			want:    "",
		},
		{
			name:    "nothing present",
			objects: map[string]string{},
			want:    "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnricher(t, &artifactStub{objects: tc.objects}, 0)
			got := e.Enrich(context.Background(), Room{RoomID: "r1", JobID: "J"})
			if s := accessoriesJSON(t, got); s != tc.want {
				t.Fatalf("expected accessories %q, got %q", tc.want, s)
			}
		})
	}
}

func TestEnrichTransientErrorIsNoContent(t *testing.T) {
	stub := &artifactStub{
		objects: map[string]string{"output/J/result.txt": `{"ok":true}`},
		errs:    map[string]error{"output/J/error.txt": errors.New("connection reset")},
	}
	e := newTestEnricher(t, stub, 0)

	got := e.Enrich(context.Background(), Room{RoomID: "r1", JobID: "J"})
	if s := accessoriesJSON(t, got); s != `{"ok":true}` {
		t.Fatalf("expected result artifact, got %q", s)
	}
}

func TestEnrichExistingAccessoriesWin(t *testing.T) {
	stub := &artifactStub{objects: map[string]string{"output/J/error.txt": "oops"}}
	e := newTestEnricher(t, stub, 0)

	for _, existing := range []string{`false`, `0`, `""`, `{}`, `{"sofa":1}`} {
		room := Room{RoomID: "r1", JobID: "J", Accessories: types.Some(json.RawMessage(existing))}
		got := e.Enrich(context.Background(), room)
		if s := accessoriesJSON(t, got); s != existing {
			t.Fatalf("existing %s replaced by %s", existing, s)
		}
	}
	if len(stub.calls) != 0 {
		t.Fatalf("expected no artifact fetches, got %v", stub.calls)
	}
}

func TestEnrichWithoutJobPassesThrough(t *testing.T) {
	stub := &artifactStub{}
	e := newTestEnricher(t, stub, 0)

	room := Room{RoomID: "r1", Name: "Kitchen"}
	got := e.Enrich(context.Background(), room)
	if got.Accessories.IsSet() || got.Name != "Kitchen" {
		t.Fatalf("unexpected room %+v", got)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("expected no fetches, got %v", stub.calls)
	}
}

func TestEnrichUsesConfiguredPrefixAndBucket(t *testing.T) {
	stub := &artifactStub{objects: map[string]string{"jobs-out/J/result.txt": "ready"}}
	e, err := NewEnricher(EnricherParams{Store: stub, Bucket: "pipeline", OutputPrefix: "/jobs-out/"})
	if err != nil {
		t.Fatalf("NewEnricher: %v", err)
	}

	got := e.Enrich(context.Background(), Room{RoomID: "r1", JobID: "J"})
	if s := accessoriesJSON(t, got); s != `{"result":"ready"}` {
		t.Fatalf("unexpected accessories %q", s)
	}
	for _, call := range stub.calls {
		if call != "pipeline/jobs-out/J/error.txt" && call != "pipeline/jobs-out/J/result.txt" {
			t.Fatalf("unexpected fetch %s", call)
		}
	}
}

func TestEnrichAllKeepsInputOrder(t *testing.T) {
	stub := &artifactStub{objects: map[string]string{
		"output/J1/error.txt":  "oops",
		"output/J2/result.txt": `{"chairs":4}`,
	}}
	e := newTestEnricher(t, stub, 0)

	in := []Room{
		{RoomID: "a", JobID: "J1"},
		{RoomID: "b"},
		{RoomID: "c", JobID: "J2"},
	}
	out, err := e.EnrichAll(context.Background(), in)
	if err != nil {
		t.Fatalf("EnrichAll: %v", err)
	}
	if len(out) != 3 || out[0].RoomID != "a" || out[1].RoomID != "b" || out[2].RoomID != "c" {
		t.Fatalf("unexpected order %+v", out)
	}
	if s := accessoriesJSON(t, out[0]); s != `{"error":"oops"}` {
		t.Fatalf("unexpected accessories for a: %q", s)
	}
	if out[1].Accessories.IsSet() {
		t.Fatal("room without job should stay unenriched")
	}
	if s := accessoriesJSON(t, out[2]); s != `{"chairs":4}` {
		t.Fatalf("unexpected accessories for c: %q", s)
	}
	if in[0].Accessories.IsSet() {
		t.Fatal("input slice must not be mutated")
	}
}

func TestEnrichAllRespectsConcurrencyCap(t *testing.T) {
	stub := &artifactStub{delay: 10 * time.Millisecond}
	e := newTestEnricher(t, stub, 2)

	rooms := make([]Room, 8)
	for i := range rooms {
		rooms[i] = Room{RoomID: string(rune('a' + i)), JobID: "J"}
	}
	if _, err := e.EnrichAll(context.Background(), rooms); err != nil {
		t.Fatalf("EnrichAll: %v", err)
	}
	// two records in flight, each with two concurrent artifact fetches
	if peak := stub.peak.Load(); peak > 4 {
		t.Fatalf("expected at most 4 concurrent fetches, saw %d", peak)
	}
}

func TestEnrichAllFailsOnCancellation(t *testing.T) {
	stub := &artifactStub{delay: time.Second}
	e := newTestEnricher(t, stub, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := e.EnrichAll(ctx, []Room{{RoomID: "a", JobID: "J"}, {RoomID: "b", JobID: "K"}})
	if out != nil {
		t.Fatalf("expected no partial results, got %+v", out)
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
}

func TestEnrichAllEmpty(t *testing.T) {
	e := newTestEnricher(t, &artifactStub{}, 0)
	out, err := e.EnrichAll(context.Background(), nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty result, got %v %v", out, err)
	}
}

func TestEnrichFetchesBothArtifactsConcurrently(t *testing.T) {
	store := &artifactStub{
		objects: map[string]string{"output/job-1/result.txt": `{"ok":true}`},
		delay:   20 * time.Millisecond,
	}
	e := newTestEnricher(t, store, 1)

	out := e.Enrich(context.Background(), Room{RoomID: "r1", JobID: "job-1"})

	if got := accessoriesJSON(t, out); got != `{"ok":true}` {
		t.Fatalf("unexpected accessories %s", got)
	}
	if len(store.calls) != 2 {
		t.Fatalf("expected both artifacts fetched, got %v", store.calls)
	}
	if peak := store.peak.Load(); peak != 2 {
		t.Fatalf("expected the two fetches to overlap, peak in flight %d", peak)
	}
}
