// Package challenges discovers challenge definitions on disk, binds each to
// a scoring/verification capability and publishes them as an immutable
// snapshot that readers access without locking.
package challenges

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/dmitrijs2005/flagkeeper/internal/server/challenges")

var ErrDuplicateID = errors.New("duplicate challenge id")

// DefinitionLoadError describes one challenge directory that was skipped.
type DefinitionLoadError struct {
	Dir string
	Err error
}

func (e *DefinitionLoadError) Error() string {
	return fmt.Sprintf("challenge %s: %v", e.Dir, e.Err)
}

func (e *DefinitionLoadError) Unwrap() error { return e.Err }

// LoadReport summarises one Load call.
type LoadReport struct {
	Loaded      int
	Diagnostics []*DefinitionLoadError
}

// Challenge is a loaded challenge. It is immutable once published.
type Challenge struct {
	Meta Metadata
	Dir  string
	// DescriptionHTML is the rendered description, computed at load.
	DescriptionHTML string

	capability Capability
	timeout    time.Duration
}

// Solve runs the capability's flag check under the evaluation timeout.
// Faults surface as common.ErrChallengeFault.
func (c *Challenge) Solve(ctx context.Context, submitted string) (bool, error) {
	return guard(ctx, c.timeout, c.Meta.ID, "solve", func(ctx context.Context) (bool, error) {
		return c.capability.Solve(ctx, submitted)
	})
}

// Value prices the challenge for priorSolves earlier solves. A negative
// value from the capability is a fault.
func (c *Challenge) Value(ctx context.Context, priorSolves int) (int, error) {
	return guard(ctx, c.timeout, c.Meta.ID, "value", func(ctx context.Context) (int, error) {
		v, err := c.capability.Value(ctx, max(priorSolves, 0))
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		return v, nil
	})
}

// Options configure a Registry.
type Options struct {
	Root         string
	EvalTimeout  time.Duration
	ScriptBudget int
	// ScriptMaxBytes caps strings built by string.rep and table.concat.
	ScriptMaxBytes int
}

// LoadHook is called with the new snapshot after every successful Load.
type LoadHook func(ctx context.Context, list []*Challenge)

type snapshot struct {
	byID    map[string]*Challenge
	ordered []*Challenge
}

type Registry struct {
	opts   Options
	logger logging.Logger

	current atomic.Pointer[snapshot]

	// loadMu serializes concurrent reloads; readers never take it.
	loadMu sync.Mutex
	hooks  []LoadHook
}

func NewRegistry(opts Options, logger logging.Logger) *Registry {
	r := &Registry{opts: opts, logger: logger.With("module", "challenges")}
	r.current.Store(&snapshot{byID: map[string]*Challenge{}})
	return r
}

// OnLoad registers h. It must be called before the first Load.
func (r *Registry) OnLoad(h LoadHook) {
	r.hooks = append(r.hooks, h)
}

// Load scans the root directory and replaces the published snapshot.
// Broken definitions are skipped and reported; only an unreadable root
// fails, and then the previous snapshot stays in place.
func (r *Registry) Load(ctx context.Context) (*LoadReport, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	ctx, span := tracer.Start(ctx, "challenges.load")
	defer span.End()

	entries, err := os.ReadDir(r.opts.Root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read root")
		return nil, fmt.Errorf("read challenges root: %w", err)
	}

	report := &LoadReport{}
	next := &snapshot{byID: make(map[string]*Challenge, len(entries))}

	// os.ReadDir sorts by name, which makes collision handling deterministic.
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(r.opts.Root, e.Name())

		c, err := r.loadOne(dir)
		if err == nil {
			if prev, dup := next.byID[c.Meta.ID]; dup {
				err = fmt.Errorf("%w %q (already loaded from %s)", ErrDuplicateID, c.Meta.ID, prev.Dir)
			}
		}
		if err != nil {
			diag := &DefinitionLoadError{Dir: dir, Err: err}
			report.Diagnostics = append(report.Diagnostics, diag)
			r.logger.Warn(ctx, "challenge skipped", "dir", dir, "error", err.Error())
			continue
		}

		next.byID[c.Meta.ID] = c
		next.ordered = append(next.ordered, c)
		r.logger.Debug(ctx, "challenge loaded", "id", c.Meta.ID, "type", c.Meta.Type)
	}

	sort.SliceStable(next.ordered, func(i, j int) bool {
		a, b := next.ordered[i].Meta, next.ordered[j].Meta
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Points != b.Points {
			return a.Points < b.Points
		}
		return a.ID < b.ID
	})

	r.current.Store(next)
	report.Loaded = len(next.ordered)

	span.SetAttributes(
		attribute.Int("challenges.loaded", report.Loaded),
		attribute.Int("challenges.skipped", len(report.Diagnostics)),
	)
	r.logger.Info(ctx, "challenges loaded", "loaded", report.Loaded, "skipped", len(report.Diagnostics))

	list := r.List()
	for _, h := range r.hooks {
		h(ctx, list)
	}
	return report, nil
}

func (r *Registry) loadOne(dir string) (*Challenge, error) {
	meta, err := readMetadata(dir)
	if err != nil {
		return nil, err
	}

	capability, err := buildCapability(Definition{Meta: meta, Dir: dir, ScriptBudget: r.opts.ScriptBudget, ScriptMaxBytes: r.opts.ScriptMaxBytes})
	if err != nil {
		return nil, err
	}

	html, err := renderDescription(dir, meta.DescriptionFile)
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Meta:            meta,
		Dir:             dir,
		DescriptionHTML: html,
		capability:      capability,
		timeout:         r.opts.EvalTimeout,
	}, nil
}

// Get returns the challenge with id from the current snapshot.
func (r *Registry) Get(id string) (*Challenge, bool) {
	c, ok := r.current.Load().byID[id]
	return c, ok
}

// List returns the current snapshot ordered by category, points, id. The
// slice is a copy; the challenges are shared.
func (r *Registry) List() []*Challenge {
	s := r.current.Load()
	out := make([]*Challenge, len(s.ordered))
	copy(out, s.ordered)
	return out
}
