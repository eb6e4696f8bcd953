//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package extsort

import (
	"bytes"
	"container/heap"
	"context"

	"github.com/pkg/errors"
)

// Frontier is the k-way merge over the heads of all active run cursors.
// Exhausted cursors are removed, so it holds at most one entry per run.
type Frontier struct {
	cursors cursorHeap
	metrics *Metrics
}

// NewFrontier takes ownership of cursors. Cursors that are already exhausted
// are dropped.
func NewFrontier(cursors []*RunCursor, metrics *Metrics) *Frontier {
	h := make(cursorHeap, 0, len(cursors))
	for _, c := range cursors {
		if _, ok := c.Peek(); ok {
			h = append(h, c)
		}
	}
	heap.Init(&h)
	metrics.ActiveCursors(h.Len())

	return &Frontier{cursors: h, metrics: metrics}
}

func (f *Frontier) Len() int {
	return f.cursors.Len()
}

// Merge emits all records of all cursors in non-decreasing order. Equal
// records are emitted in run order. rec is only valid for the duration of
// the emit call.
func (f *Frontier) Merge(ctx context.Context, emit func(rec []byte) error) (int64, error) {
	var n int64
	defer func() {
		f.metrics.RecordsMerged(n)
		f.metrics.ActiveCursors(f.cursors.Len())
	}()

	for f.cursors.Len() > 0 {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, errors.Wrap(err, "merge")
			}
		}

		top := f.cursors[0]
		rec, _ := top.Peek()
		if err := emit(rec); err != nil {
			return n, err
		}
		n++

		if err := top.Advance(); err != nil {
			return n, err
		}

		if _, ok := top.Peek(); ok {
			heap.Fix(&f.cursors, 0)
		} else {
			heap.Pop(&f.cursors)
			f.metrics.ActiveCursors(f.cursors.Len())
		}
	}

	return n, nil
}

type cursorHeap []*RunCursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if cmp := bytes.Compare(h[i].head, h[j].head); cmp != 0 {
		return cmp < 0
	}
	return h[i].run.ID < h[j].run.ID
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(*RunCursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
