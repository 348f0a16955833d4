package facekit_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero norm probe", []float32{0, 0}, []float32{1, 1}, -1},
		{"zero norm candidate", []float32{1, 1}, []float32{0, 0}, -1},
		{"nan", []float32{nan, 1}, []float32{1, 1}, -1},
		{"inf", []float32{inf, 1}, []float32{1, 1}, -1},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, -1},
		{"empty", nil, nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := facekit.CosineSimilarity(tt.a, tt.b)
			require.InDelta(t, tt.want, got, 1e-9)
			require.GreaterOrEqual(t, got, -1.0)
			require.LessOrEqual(t, got, 1.0)
		})
	}
}

// vectorAt returns a unit vector whose cosine with (1, 0) is sim.
func vectorAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestMatchPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	probe := []float32{1, 0}

	t.Run("empty gallery rejected", func(t *testing.T) {
		res := facekit.Match(ctx, probe, facekit.Gallery{Skipped: 2}, facekit.DefaultPolicy())
		require.False(t, res.Accepted)
		require.Equal(t, facekit.ReasonNoGallery, res.Reason)
		require.Equal(t, 2, res.Skipped)
	})

	t.Run("identical single vector accepted", func(t *testing.T) {
		stored := []float32{0.3, -0.2, 0.9, 0.1}
		res := facekit.Match(ctx, facekit.Normalize(append([]float32(nil), stored...)),
			facekit.Gallery{Candidates: []facekit.Candidate{{Owner: "alice", Vector: stored}}},
			facekit.DefaultPolicy())
		require.True(t, res.Accepted)
		require.Equal(t, "alice", res.Owner)
		require.InDelta(t, 1.0, res.Score, 1e-6)
		require.Zero(t, res.Top2)
	})

	nearTie := facekit.Gallery{Candidates: []facekit.Candidate{
		{Owner: "alice", Vector: vectorAt(0.95)},
		{Owner: "bob", Vector: vectorAt(0.93)},
	}}

	t.Run("margin rejects ambiguous top pair", func(t *testing.T) {
		res := facekit.Match(ctx, probe, nearTie, facekit.Policy{Threshold: 0.7, Margin: 0.05})
		require.False(t, res.Accepted)
		require.Equal(t, facekit.ReasonAmbiguous, res.Reason)
		require.InDelta(t, 0.95, res.Top1, 1e-6)
		require.InDelta(t, 0.93, res.Top2, 1e-6)
		require.Equal(t, facekit.Policy{Threshold: 0.7, Margin: 0.05}, res.Policy)
	})

	t.Run("zero margin accepts same gallery", func(t *testing.T) {
		res := facekit.Match(ctx, probe, nearTie, facekit.Policy{Threshold: 0.7})
		require.True(t, res.Accepted)
		require.Equal(t, "alice", res.Owner)
	})

	t.Run("margin ignored for single candidate", func(t *testing.T) {
		single := facekit.Gallery{Candidates: nearTie.Candidates[:1]}
		res := facekit.Match(ctx, probe, single, facekit.Policy{Threshold: 0.7, Margin: 0.5})
		require.True(t, res.Accepted)
	})

	t.Run("below threshold", func(t *testing.T) {
		low := facekit.Gallery{Candidates: []facekit.Candidate{{Owner: "carol", Vector: vectorAt(0.5)}}}
		res := facekit.Match(ctx, probe, low, facekit.DefaultPolicy())
		require.False(t, res.Accepted)
		require.Equal(t, facekit.ReasonBelowThreshold, res.Reason)
		require.Empty(t, res.Owner)
	})

	t.Run("negative runner up reported", func(t *testing.T) {
		g := facekit.Gallery{Candidates: []facekit.Candidate{
			{Owner: "alice", Vector: []float32{-1, 0}},
			{Owner: "bob", Vector: []float32{1, 0}},
		}}
		res := facekit.Match(ctx, probe, g, facekit.DefaultPolicy())
		require.True(t, res.Accepted)
		require.Equal(t, "bob", res.Owner)
		require.InDelta(t, -1.0, res.Top2, 1e-9)
	})

	t.Run("order independent across large gallery", func(t *testing.T) {
		var cands []facekit.Candidate
		for i := range 1000 {
			cands = append(cands, facekit.Candidate{Owner: fmt.Sprintf("user-%d", i), Vector: vectorAt(0.1 + 0.0005*float64(i%1000))})
		}
		cands[517] = facekit.Candidate{Owner: "target", Vector: []float32{1, 0}}

		res := facekit.Match(ctx, probe, facekit.Gallery{Candidates: cands}, facekit.DefaultPolicy())
		require.True(t, res.Accepted)
		require.Equal(t, "target", res.Owner)
		require.Equal(t, 1000, res.Candidates)

		reversed := make([]facekit.Candidate, len(cands))
		for i := range cands {
			reversed[len(cands)-1-i] = cands[i]
		}
		again := facekit.Match(ctx, probe, facekit.Gallery{Candidates: reversed}, facekit.DefaultPolicy())
		require.Equal(t, res.Owner, again.Owner)
		require.InDelta(t, res.Top2, again.Top2, 1e-12)
	})
}
