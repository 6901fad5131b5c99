package fingerjoint

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWidth is returned for a minimum finger width that is not a
	// positive finite number.
	ErrInvalidWidth = errors.New("fingerjoint: minimum finger width must be positive and finite")

	// ErrMultiComponent matches MultiComponentError.
	ErrMultiComponent = errors.New("fingerjoint: intersection has more than one connected component")

	// ErrNoDominantEdge is returned when the intersection reports no edge
	// longer than the length tolerance.
	ErrNoDominantEdge = errors.New("fingerjoint: intersection has no usable edge")

	// ErrAmbiguousSide is returned when no split piece lies clearly on
	// either side of the cutting plane.
	ErrAmbiguousSide = errors.New("fingerjoint: cannot tell which side of the cut a piece lies on")

	// ErrSplitFailed is returned when a cut leaves one side empty.
	ErrSplitFailed = errors.New("fingerjoint: cut did not divide the region")

	// ErrTooManySegments is returned before cutting when the joint would
	// exceed the generator's segment limit.
	ErrTooManySegments = errors.New("fingerjoint: too many segments")
)

// MultiComponentError reports an intersection made of several disjoint
// volumes under the RejectMultiple policy.
type MultiComponentError struct {
	Count int
}

func (e *MultiComponentError) Error() string {
	return fmt.Sprintf("fingerjoint: intersection has %d disjoint components", e.Count)
}

// Is lets errors.Is match ErrMultiComponent.
func (e *MultiComponentError) Is(target error) bool {
	return target == ErrMultiComponent
}
