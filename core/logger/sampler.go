package logger

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler passes the first num events of every den. A zero ratio passes
// everything.
type ratioSampler struct {
	ratio atomic.Uint64 // num<<32 | den
	seen  atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the count.
func (s *ratioSampler) Set(num, den int) {
	var r uint64
	if num > 0 && den > 0 && int64(den) <= math.MaxUint32 {
		r = uint64(min(num, den))<<32 | uint64(den)
	}
	s.ratio.Store(r)
	s.seen.Store(0)
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&math.MaxUint32
	return (s.seen.Add(1)-1)%den < num
}

// parseRatioSpec reads "num/den" or "den" (one in den). Bad specs disable
// sampling.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if a, b, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	if den, err := strconv.Atoi(spec); err == nil && den > 0 {
		return 1, den
	}
	return 0, 0
}
