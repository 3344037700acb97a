package challenges

import (
	"context"
	"errors"
	"math"
)

// decayCapability lowers the award from points towards minimum as more
// teams solve, reaching minimum after decay prior solves.
type decayCapability struct {
	flags    flagSet
	points   int
	minimum  int
	decay    int
	function string
}

func newDecay(def Definition) (Capability, error) {
	flags := def.Meta.acceptedFlags()
	if len(flags) == 0 {
		return nil, errors.New("decay challenge needs a flag")
	}
	m := def.Meta
	return &decayCapability{flags: flags, points: m.Points, minimum: m.Minimum, decay: m.Decay, function: m.Function}, nil
}

func (c *decayCapability) Solve(_ context.Context, submitted string) (bool, error) {
	return c.flags.match(submitted), nil
}

func (c *decayCapability) Value(_ context.Context, n int) (int, error) {
	return decayValue(c.function, c.points, c.minimum, c.decay, n), nil
}

func decayValue(function string, points, minimum, decay, n int) int {
	if n <= 0 {
		return points
	}
	if n >= decay {
		return minimum
	}

	var v int
	switch function {
	case DecayLogarithmic:
		// parabola through (0, points) with its vertex at (decay, minimum)
		f := float64(minimum-points)/float64(decay*decay)*float64(n*n) + float64(points)
		v = int(math.Ceil(f))
	default:
		v = points - (points-minimum)*n/decay
	}

	return max(minimum, min(points, v))
}
