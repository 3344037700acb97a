package challenges

import (
	"context"
	"errors"
	"strings"
)

// flagSet matches a trimmed submission exactly against the accepted flags.
type flagSet []string

func (fs flagSet) match(submitted string) bool {
	s := strings.TrimSpace(submitted)
	if s == "" {
		return false
	}
	for _, f := range fs {
		if s == f {
			return true
		}
	}
	return false
}

type staticCapability struct {
	flags  flagSet
	points int
}

func newStatic(def Definition) (Capability, error) {
	flags := def.Meta.acceptedFlags()
	if len(flags) == 0 {
		return nil, errors.New("static challenge needs a flag")
	}
	return &staticCapability{flags: flags, points: def.Meta.Points}, nil
}

func (c *staticCapability) Solve(_ context.Context, submitted string) (bool, error) {
	return c.flags.match(submitted), nil
}

func (c *staticCapability) Value(context.Context, int) (int, error) {
	return c.points, nil
}
