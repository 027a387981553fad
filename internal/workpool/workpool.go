// Package workpool runs the chunks of one Execute concurrently. It is the
// only place where the engine uses more than one goroutine: the update
// itself stays single threaded and every call here returns only after all
// chunks are done.
package workpool

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/extent"
	"golang.org/x/sync/errgroup"
)

// ChunkFunc processes one chunk. index is the chunk number, sub the part of
// the extent it covers.
type ChunkFunc func(ctx context.Context, index int, sub extent.Extent) error

// Split divides e into at most chunks non-overlapping blocks along its
// longest axis. An empty extent yields no blocks.
func Split(e extent.Extent, chunks int) []extent.Extent {
	if e.IsEmpty() {
		return nil
	}
	if chunks < 1 {
		chunks = 1
	}
	dims := e.Dimensions()
	longest := max(dims[0], dims[1], dims[2])
	chunks = min(chunks, longest)

	out := make([]extent.Extent, 0, chunks)
	for i := 0; i < chunks; i++ {
		sub := extent.SplitExtent(e, extent.Piece{Index: i, Count: chunks})
		if !sub.IsEmpty() {
			out = append(out, sub)
		}
	}
	return out
}

// ForEachChunk splits e into chunks and runs fn on each with at most
// workers goroutines. The first error cancels the remaining chunks and is
// returned once every started chunk has finished.
func ForEachChunk(ctx context.Context, e extent.Extent, chunks, workers int, fn ChunkFunc) error {
	parts := Split(e, chunks)
	if len(parts) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running chunks.", "extent", e.String(), "chunks", len(parts), "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sub := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, i, sub); err != nil {
				return fmt.Errorf("chunk %d %s: %w", i, sub, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ForEachRange is ForEachChunk for a flat range of n items: fn receives the
// half-open [start, end) of each chunk.
func ForEachRange(ctx context.Context, n, chunks, workers int, fn func(ctx context.Context, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	return ForEachChunk(ctx, extent.New(0, n-1, 0, 0, 0, 0), chunks, workers,
		func(ctx context.Context, _ int, sub extent.Extent) error {
			return fn(ctx, sub[0], sub[1]+1)
		})
}
