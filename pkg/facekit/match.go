package facekit

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Match policy defaults.
const (
	DefaultThreshold = 0.7
	DefaultMargin    = 0.0
)

// Rejection reasons reported in MatchResult.Reason.
const (
	ReasonNoGallery      = "no enrolled faces"
	ReasonAmbiguous      = "ambiguous match"
	ReasonBelowThreshold = "below threshold"
)

// parallelScoreMin is the gallery size from which scoring is fanned out.
const parallelScoreMin = 256

// Candidate is one gallery entry.
type Candidate struct {
	Owner  string
	Vector []float32
}

// Policy holds the accept/reject parameters. A Margin of zero disables the
// margin rule.
type Policy struct {
	Threshold float64
	Margin    float64
}

// DefaultPolicy returns threshold 0.7 with the margin rule disabled.
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, Margin: DefaultMargin}
}

// MatchResult describes a match decision. Top2 is zero when fewer than two
// candidates were scored. Skipped counts gallery rows that could not be
// opened and were left out. Policy is the policy the decision was made
// under.
type MatchResult struct {
	Accepted   bool
	Owner      string
	Score      float64
	Top1       float64
	Top2       float64
	Candidates int
	Skipped    int
	Reason     string
	Policy     Policy
}

// CosineSimilarity returns the cosine of the angle between a and b, clamped to
// [-1, 1]. Mismatched lengths, zero norms and non-finite values yield -1.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return -1
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return -1
	}
	return math.Max(-1, math.Min(1, s))
}

// Match scores probe against every candidate and applies policy: an empty
// gallery is rejected, then the margin rule, then the threshold.
func Match(ctx context.Context, probe []float32, gallery Gallery, policy Policy) MatchResult {
	res := MatchResult{Candidates: len(gallery.Candidates), Skipped: gallery.Skipped, Policy: policy}
	if len(gallery.Candidates) == 0 {
		res.Reason = ReasonNoGallery
		return res
	}

	scores := scoreAll(ctx, probe, gallery.Candidates)

	best := 0
	res.Top1, res.Top2 = math.Inf(-1), math.Inf(-1)
	for i, s := range scores {
		switch {
		case s > res.Top1:
			res.Top2 = res.Top1
			res.Top1, best = s, i
		case s > res.Top2:
			res.Top2 = s
		}
	}
	if len(scores) < 2 {
		res.Top2 = 0
	}

	if policy.Margin > 0 && len(scores) > 1 && res.Top1-res.Top2 < policy.Margin {
		res.Reason = ReasonAmbiguous
		return res
	}
	if res.Top1 < policy.Threshold {
		res.Reason = ReasonBelowThreshold
		return res
	}

	res.Accepted = true
	res.Owner = gallery.Candidates[best].Owner
	res.Score = res.Top1
	return res
}

// scoreAll computes similarities in candidate order. Large galleries are split
// across CPUs.
func scoreAll(ctx context.Context, probe []float32, cands []Candidate) []float64 {
	scores := make([]float64, len(cands))
	if len(cands) < parallelScoreMin {
		for i, c := range cands {
			scores[i] = CosineSimilarity(probe, c.Vector)
		}
		return scores
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(cands) + workers - 1) / workers

	g, _ := errgroup.WithContext(ctx)
	for start := 0; start < len(cands); start += chunk {
		end := min(start+chunk, len(cands))
		g.Go(func() error {
			for i := start; i < end; i++ {
				scores[i] = CosineSimilarity(probe, cands[i].Vector)
			}
			return nil
		})
	}
	_ = g.Wait()
	return scores
}
