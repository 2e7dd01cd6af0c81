package engine

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// signature is a MinHash sketch of an n-gram set.
type signature []uint64

// hasher produces MinHash signatures with a fixed family of permutations.
type hasher struct {
	seeds []uint64
}

func newHasher(permutations int) *hasher {
	if permutations < 1 {
		permutations = 1
	}
	seeds := make([]uint64, permutations)
	state := uint64(0x9e3779b97f4a7c15)
	for i := range seeds {
		state = splitmix64(state)
		seeds[i] = state
	}
	return &hasher{seeds: seeds}
}

func (h *hasher) sign(grams []string) signature {
	sig := make(signature, len(h.seeds))
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for _, gram := range grams {
		base := xxhash.Sum64String(gram)
		for i, seed := range h.seeds {
			if v := splitmix64(base ^ seed); v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// bandKey hashes rows [start, start+rows) of a signature together with the
// band number.
func bandKey(sig signature, band, rows int) uint64 {
	buf := make([]byte, 8*(rows+1))
	binary.LittleEndian.PutUint64(buf, uint64(band))
	for i := 0; i < rows; i++ {
		binary.LittleEndian.PutUint64(buf[8*(i+1):], sig[band*rows+i])
	}
	return xxhash.Sum64(buf)
}

// bandLayout picks the band count and rows per band that minimize the
// combined false positive and false negative probability mass around the
// Jaccard threshold.
func bandLayout(threshold float64, permutations int) (bands, rows int) {
	bands, rows = permutations, 1
	bestErr := math.Inf(1)
	for b := 1; b <= permutations; b++ {
		maxRows := permutations / b
		for r := 1; r <= maxRows; r++ {
			fp := integrate(func(s float64) float64 { return collision(s, b, r) }, 0, threshold)
			fn := integrate(func(s float64) float64 { return 1 - collision(s, b, r) }, threshold, 1)
			if e := 0.5*fp + 0.5*fn; e < bestErr {
				bestErr, bands, rows = e, b, r
			}
		}
	}
	return bands, rows
}

// collision is the probability that two sets with Jaccard similarity s share
// at least one band.
func collision(s float64, bands, rows int) float64 {
	return 1 - math.Pow(1-math.Pow(s, float64(rows)), float64(bands))
}

func integrate(f func(float64) float64, a, b float64) float64 {
	const steps = 100
	if b <= a {
		return 0
	}
	width := (b - a) / steps
	area := 0.0
	for i := 0; i < steps; i++ {
		area += f(a+(float64(i)+0.5)*width) * width
	}
	return area
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]struct{}, len(a))
	for _, g := range a {
		set[g] = struct{}{}
	}
	shared := 0
	for _, g := range b {
		if _, ok := set[g]; ok {
			shared++
		}
	}
	union := len(set) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
