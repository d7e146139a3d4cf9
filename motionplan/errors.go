package motionplan

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// newNonFiniteError reports a caller contract violation: NaN or Inf
// coordinates indicate malformed input, not a planning outcome, and are the
// only conditions the planner fails loudly on.
func newNonFiniteError(what string, pt r2.Point) error {
	return errors.Errorf("%s has non-finite coordinates (%v, %v)", what, pt.X, pt.Y)
}
