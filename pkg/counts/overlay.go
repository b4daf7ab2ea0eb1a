// Package counts fetches per-vertex asset counts in the background.
package counts

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/graph"
	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/model"
)

// Fetch results reported to the observer.
const (
	ResultOK         = "ok"
	ResultPartial    = "partial"
	ResultSuperseded = "superseded"
)

// Observer is told how every fetch ended.
type Observer func(result string, duration time.Duration)

// Overlay holds the latest counts of a graph. A fetch starts only when the graph
// identity changes, and a superseded fetch never replaces newer counts.
type Overlay struct {
	lister  datasource.AssetLister
	limit   int
	observe Observer
	log     *slog.Logger

	mu         sync.Mutex
	key        string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	counts     map[string]model.Counts
}

// New creates an overlay fetching with at most limit concurrent vertices.
func New(lister datasource.AssetLister, limit int, observe Observer) *Overlay {
	if limit <= 0 {
		limit = 1
	}
	if observe == nil {
		observe = func(string, time.Duration) {}
	}
	done := make(chan struct{})
	close(done)
	return &Overlay{
		lister:  lister,
		limit:   limit,
		observe: observe,
		log:     logging.New("counts"),
		done:    done,
		counts:  map[string]model.Counts{},
	}
}

// Refresh starts a fetch for data unless one for the same identity was already
// started. It reports whether a fetch started. The previous fetch is cancelled.
func (o *Overlay) Refresh(ctx context.Context, data *model.GraphData) bool {
	key := graph.Identity(data)

	o.mu.Lock()
	if key == o.key {
		o.mu.Unlock()
		return false
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.key = key
	o.generation++
	gen := o.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	vertices := make([]model.Vertex, 0, len(data.Nodes))
	for _, n := range data.VertexNodes() {
		if n.Vertex != nil {
			vertices = append(vertices, *n.Vertex)
		}
	}

	go func() {
		defer close(done)
		defer cancel()
		start := time.Now()

		counts, failed := Fetch(fetchCtx, o.lister, vertices, o.limit)

		o.mu.Lock()
		defer o.mu.Unlock()
		if gen != o.generation {
			o.observe(ResultSuperseded, time.Since(start))
			o.log.Debug("discarding superseded counts", "generation", gen)
			return
		}
		o.counts = counts
		result := ResultOK
		if failed > 0 {
			result = ResultPartial
			o.log.Warn("counts degraded to zero", "vertices", failed)
		}
		o.observe(result, time.Since(start))
		o.log.Debug("counts updated", "vertices", len(counts), "durationMs", time.Since(start).Milliseconds())
	}()
	return true
}

// Invalidate forgets the fetched identity so the next Refresh fetches again even for
// an unchanged graph. Used when only assets changed on disk.
func (o *Overlay) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.key = ""
}

// Get returns the counts of a vertex.
func (o *Overlay) Get(id string) (model.Counts, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counts[id]
	return c, ok
}

// Snapshot returns a copy of all counts.
func (o *Overlay) Snapshot() map[string]model.Counts {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]model.Counts, len(o.counts))
	for k, v := range o.counts {
		out[k] = v
	}
	return out
}

// Wait blocks until the latest fetch finished or ctx is done.
func (o *Overlay) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any fetch in flight.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++
}

// Fetch counts every vertex concurrently. A vertex whose listing fails gets a zero
// entry; failed reports how many did.
func Fetch(ctx context.Context, lister datasource.AssetLister, vertices []model.Vertex, limit int) (map[string]model.Counts, int) {
	children := make(map[string]int)
	for _, v := range vertices {
		if v.ParentID != "" {
			children[v.ParentID]++
		}
	}

	results := make([]model.Counts, len(vertices))
	errs := make([]error, len(vertices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range vertices {
		g.Go(func() error {
			results[i], errs[i] = fetchOne(gctx, lister, vertices[i])
			results[i].Items = children[vertices[i].ID]
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[string]model.Counts, len(vertices))
	failed := 0
	for i, v := range vertices {
		if errs[i] != nil {
			failed++
			counts[v.ID] = model.Counts{}
			continue
		}
		counts[v.ID] = results[i]
	}
	return counts, failed
}

func fetchOne(ctx context.Context, lister datasource.AssetLister, v model.Vertex) (model.Counts, error) {
	if err := ctx.Err(); err != nil {
		return model.Counts{}, err
	}
	notes, err := lister.ListNotes(ctx, v)
	if err != nil {
		return model.Counts{}, err
	}
	images, err := lister.ListImages(ctx, v)
	if err != nil {
		return model.Counts{}, err
	}
	links, err := lister.ListLinks(ctx, v)
	if err != nil {
		return model.Counts{}, err
	}
	return model.Counts{
		Notes:  len(notes),
		Images: len(images),
		Links:  len(links),
		Files:  countFiles(ctx, lister, v.AssetDirectory),
	}, nil
}

// countFiles counts plain files; any listing failure, including an unavailable
// listing, counts as none.
func countFiles(ctx context.Context, lister datasource.AssetLister, dir string) int {
	names, err := lister.ListDir(ctx, dir)
	if err != nil {
		if !errors.Is(err, datasource.ErrUnavailable) {
			logging.Trace("file listing failed", "dir", dir, "error", err)
		}
		return 0
	}
	n := 0
	for _, name := range names {
		if datasource.IsOtherFile(name) {
			n++
		}
	}
	return n
}
