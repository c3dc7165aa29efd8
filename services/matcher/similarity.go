// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matcher

import (
	"container/heap"
	"math"
)

// =============================================================================
// Similarity Ranker
// =============================================================================

// cosineEpsilon guards the denominator of CosineSimilarity against degenerate
// (near-zero) vectors. 1e-10 is far below any norm a real embedding produces.
const cosineEpsilon = 1e-10

// CosineSimilarity computes the cosine similarity between two fingerprints.
//
// # Description
//
// Standard cosine: dot(a,b) / (|a|·|b| + ε). Inputs are NOT assumed to be
// unit-normalized. For non-zero inputs the result is in [-1, 1]; a degenerate
// (zero) input yields a value near 0 rather than a division-by-zero panic.
// Mismatched lengths use the shorter vector, matching dot-product convention.
//
// Pure and deterministic; no side effects.
//
// # Thread Safety
//
// Safe for concurrent use.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}

// isZeroVector reports whether v is empty or contains only zeros. A zero
// fingerprint means "no fingerprint available" and is rejected as input.
func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// =============================================================================
// Bounded Top-N Selection
// =============================================================================
//
// Keyword search returns up to 100 candidates but the rerank keeps only the
// top 15 by similarity. A fixed-capacity min-heap gives O(n log N) selection
// instead of sorting the whole page, with identical truncation semantics.
// Ties in score break by the candidate's original (store-native) position, so
// the selection is stable with respect to keyword relevance order.

// scoredIndex is one heap entry: a candidate's similarity plus its position
// in the store-native result order.
type scoredIndex struct {
	score float64
	index int
}

// scoredMinHeap is a min-heap on (score asc, index desc): the root is always
// the current weakest candidate, where "weakest" prefers evicting the entry
// that arrived later when scores tie.
type scoredMinHeap []scoredIndex

func (h scoredMinHeap) Len() int { return len(h) }

func (h scoredMinHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].index > h[j].index
}

func (h scoredMinHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredMinHeap) Push(x any) { *h = append(*h, x.(scoredIndex)) }

func (h *scoredMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topNIndices returns the indices of the n highest-scoring entries, ordered
// by score descending with ties in original-index order. scores[i] is the
// score of candidate i; candidates keep their input positions.
func topNIndices(scores []float64, n int) []int {
	if n <= 0 {
		return nil
	}

	h := make(scoredMinHeap, 0, n)
	heap.Init(&h)
	for i, s := range scores {
		entry := scoredIndex{score: s, index: i}
		if len(h) < n {
			heap.Push(&h, entry)
			continue
		}
		// Replace the root only if the new entry beats it; on equal score the
		// earlier candidate wins, preserving store-native order.
		root := h[0]
		if s > root.score || (s == root.score && i < root.index) {
			h[0] = entry
			heap.Fix(&h, 0)
		}
	}

	// Drain ascending, then reverse into descending-score order.
	out := make([]int, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(scoredIndex).index
	}
	return out
}
