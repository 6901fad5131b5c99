// Package align maps alignment codes such as "LL" or "LCH" to per-axis
// alignments of a bounding box.
package align

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Align selects a point along one axis of a bounding box.
type Align int

const (
	Min Align = iota
	Center
	Max
)

func (a Align) String() string {
	switch a {
	case Min:
		return "min"
	case Center:
		return "center"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Align(%d)", int(a))
	}
}

// Letter returns the code letter for a.
func (a Align) Letter() byte {
	return letters[a]
}

// at returns the aligned coordinate between lo and hi.
func (a Align) at(lo, hi float64) float64 {
	switch a {
	case Center:
		return (lo + hi) / 2
	case Max:
		return hi
	default:
		return lo
	}
}

// Triple holds one Align per axis.
type Triple [3]Align

// Code returns the three-letter code of t.
func (t Triple) Code() string {
	return string([]byte{t[0].Letter(), t[1].Letter(), t[2].Letter()})
}

// Offset returns the translation that moves the aligned point of the
// box [min, max] to the origin.
func (t Triple) Offset(min, max r3.Vec) r3.Vec {
	return r3.Vec{
		X: -t[0].at(min.X, max.X),
		Y: -t[1].at(min.Y, max.Y),
		Z: -t[2].at(min.Z, max.Z),
	}
}

var letters = [3]byte{'L', 'C', 'H'}

// Pairs maps every two-letter code to its alignment. The z axis of a
// pair stays at Min.
var Pairs = make(map[string]Triple, 9)

// Triples maps every three-letter code to its alignment.
var Triples = make(map[string]Triple, 27)

func init() {
	for x := Min; x <= Max; x++ {
		for y := Min; y <= Max; y++ {
			Pairs[string([]byte{letters[x], letters[y]})] = Triple{x, y, Min}
			for z := Min; z <= Max; z++ {
				t := Triple{x, y, z}
				Triples[t.Code()] = t
			}
		}
	}
}

// Parse looks up a two- or three-letter code, ignoring case.
func Parse(code string) (Triple, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	var (
		t  Triple
		ok bool
	)
	switch len(c) {
	case 2:
		t, ok = Pairs[c]
	case 3:
		t, ok = Triples[c]
	}
	if !ok {
		return Triple{}, fmt.Errorf("align: unknown code %q (want 2 or 3 of L, C, H)", code)
	}
	return t, nil
}
