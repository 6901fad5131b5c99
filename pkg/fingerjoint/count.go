package fingerjoint

import (
	"fmt"
	"math"
	"strings"
)

// FingerType constrains the parity of the number of segments a joint is
// cut into.
type FingerType int

const (
	FingerAny  FingerType = iota // keep the computed count
	FingerOdd                    // odd number of segments: both ends in bucket A
	FingerEven                   // even number of segments: ends in opposite buckets
)

func (f FingerType) String() string {
	switch f {
	case FingerAny:
		return "any"
	case FingerOdd:
		return "odd"
	case FingerEven:
		return "even"
	default:
		return fmt.Sprintf("FingerType(%d)", int(f))
	}
}

// ParseFingerType accepts "", "any", "odd" and "even" in any case.
func ParseFingerType(s string) (FingerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "none":
		return FingerAny, nil
	case "odd":
		return FingerOdd, nil
	case "even":
		return FingerEven, nil
	}
	return FingerAny, fmt.Errorf("fingerjoint: invalid finger type %q (must be odd, even or any)", s)
}

// RawStations returns floor(length/minWidth) + 1: the number of evenly
// spaced cut stations, end points included, that keeps every segment at
// least minWidth wide. Ratios beyond math.MaxInt32 saturate there, and a
// ratio that is not a number gives zero.
func RawStations(length, minWidth float64) int {
	q := math.Floor(length / minWidth)
	switch {
	case math.IsNaN(q) || q < 0:
		return 0
	case q >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(q) + 1
}

// AdjustStations applies the parity policy to a station count. A joint
// with n stations has n-1 segments; EVEN drops a station when that count
// is odd and ODD drops one when it is even.
func AdjustStations(n int, ft FingerType) int {
	switch ft {
	case FingerEven:
		if n%2 == 0 {
			return n - 1
		}
	case FingerOdd:
		if n%2 == 1 {
			return n - 1
		}
	}
	return n
}

// SegmentCount returns the number of segments a joint along an edge of
// the given length is cut into. Fewer than three stations leave no
// interior cut, so such a joint is one tab.
func SegmentCount(length, minWidth float64, ft FingerType) int {
	n := AdjustStations(RawStations(length, minWidth), ft)
	if n < 3 {
		return 1
	}
	return n - 1
}
