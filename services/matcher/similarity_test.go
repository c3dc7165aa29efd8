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
	"math"
	"testing"
)

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.3, -0.8, 0.5, 0.1}
	got := CosineSimilarity(v, v)
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("CosineSimilarity(v, v) = %f, want ~1.0", got)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	got := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if math.Abs(got) > 1e-6 {
		t.Errorf("orthogonal similarity = %f, want ~0", got)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	got := CosineSimilarity([]float32{1, 2, 3}, []float32{-1, -2, -3})
	if math.Abs(got+1.0) > 1e-6 {
		t.Errorf("opposite similarity = %f, want ~-1.0", got)
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.9, -0.4},
		{100, 200, 300},
		{-0.001, 0.002, -0.003},
		{1, 1, 1},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			got := CosineSimilarity(a, b)
			if got < -1.0-1e-9 || got > 1.0+1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %f, out of [-1, 1]", a, b, got)
			}
		}
	}
}

func TestCosineSimilarity_ZeroVectorDoesNotPanic(t *testing.T) {
	got := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if got != 0 {
		t.Errorf("zero-vector similarity = %f, want 0", got)
	}
	got = CosineSimilarity(nil, []float32{1, 2, 3})
	if got != 0 {
		t.Errorf("nil-vector similarity = %f, want 0", got)
	}
}

func TestCosineSimilarity_Deterministic(t *testing.T) {
	a := []float32{0.25, -0.75, 0.5}
	b := []float32{0.1, 0.6, -0.2}
	first := CosineSimilarity(a, b)
	for i := 0; i < 10; i++ {
		if got := CosineSimilarity(a, b); got != first {
			t.Fatalf("similarity not deterministic: %v != %v", got, first)
		}
	}
}

func TestIsZeroVector(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		want bool
	}{
		{"nil", nil, true},
		{"empty", []float32{}, true},
		{"all zeros", []float32{0, 0, 0}, true},
		{"one nonzero", []float32{0, 0.001, 0}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isZeroVector(tc.v); got != tc.want {
				t.Errorf("isZeroVector(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestTopNIndices_SelectsHighest(t *testing.T) {
	scores := []float64{0.2, 0.9, 0.1, 0.7, 0.5}
	got := topNIndices(scores, 3)
	want := []int{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTopNIndices_FewerCandidatesThanN(t *testing.T) {
	got := topNIndices([]float64{0.3, 0.8}, 15)
	want := []int{1, 0}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTopNIndices_TiesKeepOriginalOrder(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5, 0.5, 0.5}
	got := topNIndices(scores, 3)
	want := []int{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d (earlier candidate wins ties)", i, got[i], want[i])
		}
	}
}

func TestTopNIndices_ZeroN(t *testing.T) {
	if got := topNIndices([]float64{0.1, 0.2}, 0); got != nil {
		t.Errorf("topNIndices(_, 0) = %v, want nil", got)
	}
}

func TestTopNIndices_EmptyScores(t *testing.T) {
	if got := topNIndices(nil, 5); len(got) != 0 {
		t.Errorf("topNIndices(nil, 5) = %v, want empty", got)
	}
}
