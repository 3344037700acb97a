package challenges

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Capability verifies flags and prices a challenge. Implementations must be
// safe for concurrent use and must not touch the solve ledger.
type Capability interface {
	// Solve reports whether submitted is an accepted flag.
	Solve(ctx context.Context, submitted string) (bool, error)
	// Value returns the award for a team solving after priorSolves teams.
	// It is never negative.
	Value(ctx context.Context, priorSolves int) (int, error)
}

// Definition is what a Factory gets to build a Capability from.
type Definition struct {
	Meta Metadata
	Dir  string
	// ScriptBudget caps the number of VM instructions per script call.
	ScriptBudget int
	// ScriptMaxBytes caps strings built by string.rep and table.concat.
	ScriptMaxBytes int
}

// Factory builds the capability of one challenge variant.
type Factory func(def Definition) (Capability, error)

// Built-in variant names.
const (
	VariantStatic = "static"
	VariantDecay  = "decay"
	VariantScript = "script"
)

var (
	variantsMu sync.RWMutex
	variants   = map[string]Factory{}
)

// RegisterVariant makes a variant available under name. Registering the
// same name twice replaces the earlier factory.
func RegisterVariant(name string, f Factory) {
	variantsMu.Lock()
	defer variantsMu.Unlock()
	variants[name] = f
}

// Variants lists the registered variant names.
func Variants() []string {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	out := make([]string, 0, len(variants))
	for n := range variants {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func buildCapability(def Definition) (Capability, error) {
	variantsMu.RLock()
	f, ok := variants[def.Meta.Type]
	variantsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown challenge type %q (known: %s)", def.Meta.Type, strings.Join(Variants(), ", "))
	}
	return f(def)
}

func init() {
	RegisterVariant(VariantStatic, newStatic)
	RegisterVariant(VariantDecay, newDecay)
	RegisterVariant(VariantScript, newScript)
}
