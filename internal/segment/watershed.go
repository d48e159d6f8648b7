package segment

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// floodEntry is one pixel waiting in the priority queue. Its insertion
// sequence is its position in the arena.
type floodEntry struct {
	index int
	value float64
}

// floodQueue is a max-priority queue over an arena of entries allocated once
// per call. Larger values pop first; equal values pop in insertion order.
type floodQueue struct {
	arena []floodEntry
	heap  []int
}

func newFloodQueue(capacity int) *floodQueue {
	return &floodQueue{
		arena: make([]floodEntry, 0, capacity),
		heap:  make([]int, 0, 256),
	}
}

// Len returns the number of queued entries.
func (q *floodQueue) Len() int { return len(q.heap) }

// Less ranks larger values first and breaks ties by insertion sequence.
func (q *floodQueue) Less(i, j int) bool {
	a, b := q.heap[i], q.heap[j]
	va, vb := q.arena[a].value, q.arena[b].value
	if va != vb {
		return va > vb
	}
	return a < b
}

// Swap swaps two heap slots.
func (q *floodQueue) Swap(i, j int) { q.heap[i], q.heap[j] = q.heap[j], q.heap[i] }

// Push adds an arena position; called by heap.Push.
func (q *floodQueue) Push(x any) { q.heap = append(q.heap, x.(int)) }

// Pop removes the last heap slot; called by heap.Pop.
func (q *floodQueue) Pop() any {
	n := len(q.heap)
	x := q.heap[n-1]
	q.heap = q.heap[:n-1]
	return x
}

// add records a pixel in the arena and queues it.
func (q *floodQueue) add(index int, value float64) {
	q.arena = append(q.arena, floodEntry{index: index, value: value})
	heap.Push(q, len(q.arena)-1)
}

// next pops the highest-priority pixel index.
func (q *floodQueue) next() int {
	pos := heap.Pop(q).(int)
	return q.arena[pos].index
}

// Grow extends the existing labels of labels across unlabeled pixels of
// values, in order of decreasing value, producing a seeded watershed.
//
// # Algorithm
//
//  1. Every unlabeled pixel adjacent to a labeled pixel whose value is
//     strictly greater than minThreshold is queued.
//  2. Labeled pixels and pixels with value <= minThreshold are closed and
//     never enter the queue. Every queued pixel is closed as well, so no
//     pixel is queued twice.
//  3. The queue pops the largest value first; equal values pop in insertion
//     order, which makes plateaus split deterministically.
//  4. A popped pixel whose labeled neighbours all carry one label takes that
//     label and queues its open neighbours. A pixel whose labeled neighbours
//     disagree stays 0 permanently: it is a watershed line.
//  5. Growth stops when the queue is empty.
//
// Pixels that are non-zero on entry are never changed. Running Grow again on
// its own output with the same arguments changes nothing.
//
// Growth runs on a working copy that replaces the contents of labels only on
// success; a canceled call returns an error wrapping raster.ErrCanceled and
// leaves labels as it was.
func Grow(ctx context.Context, values *raster.Raster, labels *raster.LabelImage, minThreshold float64, conn raster.Connectivity) error {
	if err := raster.SameSize(values.Width, values.Height, labels.Width, labels.Height); err != nil {
		return fmt.Errorf("failed to grow labels: %w", err)
	}
	if err := raster.CheckCanceled(ctx); err != nil {
		return err
	}

	w, h := values.Width, values.Height
	n := w * h
	work := labels.Clone()
	offsets := conn.Offsets()

	closed := make([]bool, n)
	for i, v := range values.Pix {
		if work.AtIndex(i) != 0 || !(v > minThreshold) {
			closed[i] = true
		}
	}

	queue := newFloodQueue(n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if closed[i] {
				continue
			}
			for _, d := range offsets {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if work.AtIndex(ny*w+nx) != 0 {
					closed[i] = true
					queue.add(i, values.Pix[i])
					break
				}
			}
		}
	}

	for pops := 0; queue.Len() > 0; pops++ {
		if pops%cancelEvery == 0 {
			if err := raster.CheckCanceled(ctx); err != nil {
				return err
			}
		}
		i := queue.next()
		x, y := i%w, i/w

		var label uint32
		conflict := false
		for _, d := range offsets {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			l := work.AtIndex(ny*w + nx)
			if l == 0 {
				continue
			}
			if label == 0 {
				label = l
			} else if l != label {
				conflict = true
				break
			}
		}
		if conflict || label == 0 {
			continue
		}

		work.SetIndex(i, label)
		for _, d := range offsets {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			j := ny*w + nx
			if closed[j] {
				continue
			}
			closed[j] = true
			queue.add(j, values.Pix[j])
		}
	}

	return labels.CopyFrom(work)
}

// Expand grows every label outward by at most maxDistance pixels (Euclidean,
// measured between pixel centres) without merging neighbouring regions.
//
// It computes the distance of every unlabeled pixel to the nearest labeled
// pixel, negates it, and runs Grow with minThreshold = -maxDistance, so the
// nearest pixels are claimed first and pixels at distance maxDistance or more
// are never claimed. Where two regions meet, Grow's tie-break leaves a
// one-pixel watershed line.
func Expand(ctx context.Context, labels *raster.LabelImage, maxDistance float64, conn raster.Connectivity) error {
	if maxDistance < 0 {
		return fmt.Errorf("%w: max distance %g", raster.ErrNegativeParameter, maxDistance)
	}
	dist := DistanceTransform(labels)
	for i, d := range dist.Pix {
		dist.Pix[i] = -d
	}
	return Grow(ctx, dist, labels, -maxDistance, conn)
}
