package nav

import (
	"math/rand"
	"reflect"
	"testing"
)

// randomDescriptors builds distinct random descriptors. Random 256-bit words
// sit near Hamming distance 128 from each other, so a self-match at distance
// zero is always the unambiguous nearest neighbor.
func randomDescriptors(n int, seed int64) []Descriptor {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Descriptor, n)
	for i := range out {
		for w := 0; w < DescriptorWords; w++ {
			out[i][w] = rng.Uint64()
		}
	}
	return out
}

func TestHammingDistance(t *testing.T) {
	var a, b Descriptor
	if d := HammingDistance(a, b); d != 0 {
		t.Errorf("zero descriptors: distance %d, want 0", d)
	}

	b[0] = 0b1011
	if d := HammingDistance(a, b); d != 3 {
		t.Errorf("distance %d, want 3", d)
	}

	for w := 0; w < DescriptorWords; w++ {
		a[w] = 0
		b[w] = ^uint64(0)
	}
	if d := HammingDistance(a, b); d != DescriptorBits {
		t.Errorf("inverted descriptors: distance %d, want %d", d, DescriptorBits)
	}
}

func TestMatch_SelfIdentity(t *testing.T) {
	desc := randomDescriptors(30, 99)
	matches := MatchDescriptors(desc, desc, DefaultMatcherConfig())
	if matches == nil {
		t.Fatal("self-match returned no matches")
	}

	for _, m := range matches {
		if m.TargetIdx != m.FrameIdx {
			t.Errorf("self-match paired %d with %d", m.TargetIdx, m.FrameIdx)
		}
		if m.Distance != 0 {
			t.Errorf("self-match distance %d, want 0", m.Distance)
		}
	}
}

func TestMatch_KeepFractionFloor(t *testing.T) {
	desc := randomDescriptors(30, 99)
	cfg := DefaultMatcherConfig()
	matches := MatchDescriptors(desc, desc, cfg)

	// 15% of 30 is 4, below the floor of 10.
	if len(matches) != cfg.MinGoodMatches {
		t.Errorf("kept %d matches, want the floor %d", len(matches), cfg.MinGoodMatches)
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	desc := randomDescriptors(10, 1)
	if m := MatchDescriptors(nil, desc, DefaultMatcherConfig()); m != nil {
		t.Errorf("nil target produced %d matches", len(m))
	}
	if m := MatchDescriptors(desc, nil, DefaultMatcherConfig()); m != nil {
		t.Errorf("nil frame produced %d matches", len(m))
	}
}

func TestMatch_BelowViableFloor(t *testing.T) {
	// Only 3 possible correspondences, below MinViableMatches.
	desc := randomDescriptors(3, 5)
	if m := MatchDescriptors(desc, desc, DefaultMatcherConfig()); m != nil {
		t.Errorf("expected unmatched result below viability floor, got %d matches", len(m))
	}
}

func TestMatch_MaxDistanceCeiling(t *testing.T) {
	target := randomDescriptors(20, 2)
	frame := randomDescriptors(20, 3)

	cfg := DefaultMatcherConfig()
	cfg.MaxDistance = 5
	// Unrelated random descriptors sit near distance 128; the ceiling must
	// reject everything, leaving the frame unmatched.
	if m := MatchDescriptors(target, frame, cfg); m != nil {
		t.Errorf("ceiling did not reject distant matches, got %d", len(m))
	}
}

func TestMatch_Deterministic(t *testing.T) {
	target := randomDescriptors(40, 11)
	frame := randomDescriptors(40, 11)

	first := MatchDescriptors(target, frame, DefaultMatcherConfig())
	second := MatchDescriptors(target, frame, DefaultMatcherConfig())
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different match lists")
	}
}

func TestMatch_SortedByDistance(t *testing.T) {
	target := randomDescriptors(50, 21)
	frame := make([]Descriptor, len(target))
	copy(frame, target)
	// Flip a few bits in some frame descriptors to spread the distances.
	for i := 0; i < len(frame); i += 3 {
		frame[i][0] ^= uint64(i)
	}

	matches := MatchDescriptors(target, frame, DefaultMatcherConfig())
	for i := 1; i < len(matches); i++ {
		if matches[i].Distance < matches[i-1].Distance {
			t.Fatalf("matches not sorted at %d: %d < %d", i, matches[i].Distance, matches[i-1].Distance)
		}
	}
}

func TestMatchDistanceQuantile(t *testing.T) {
	if q := MatchDistanceQuantile(nil, 0.5); q != 0 {
		t.Errorf("empty matches quantile %f, want 0", q)
	}

	matches := []Match{
		{Distance: 10}, {Distance: 20}, {Distance: 30}, {Distance: 40},
	}
	median := MatchDistanceQuantile(matches, 0.5)
	if median < 10 || median > 30 {
		t.Errorf("median %f outside plausible range", median)
	}
}
