package challenges

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const (
	defaultScriptBudget   = 1_000_000
	defaultScriptMaxBytes = 1 << 20
	// hookStride is how many VM instructions run between budget checks.
	hookStride = 1000
)

var (
	ErrBudgetExhausted = errors.New("instruction budget exhausted")
	ErrStringTooLarge  = errors.New("string exceeds script byte limit")
)

// Libraries a challenge script may use. io, os, package and debug are
// never opened.
var sandboxLibs = []lua.RegistryFunction{
	{Name: "_G", Function: lua.BaseOpen},
	{Name: "string", Function: lua.StringOpen},
	{Name: "table", Function: lua.TableOpen},
	{Name: "math", Function: lua.MathOpen},
	{Name: "bit32", Function: lua.Bit32Open},
}

// Base library functions that reach the filesystem or compile new code.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage", "print", "rawset"}

// scriptCapability runs chall.lua in a fresh, restricted Lua state on
// every call. The script defines solve(flag) and optionally value(n).
type scriptCapability struct {
	source   string
	meta     Metadata
	budget   int
	maxBytes int
	hasValue bool
}

func newScript(def Definition) (Capability, error) {
	b, err := os.ReadFile(filepath.Join(def.Dir, scriptFile))
	if err != nil {
		return nil, fmt.Errorf("script challenge: %w", err)
	}
	c := &scriptCapability{source: string(b), meta: def.Meta, budget: def.ScriptBudget}
	if c.budget <= 0 {
		c.budget = defaultScriptBudget
	}
	c.maxBytes = def.ScriptMaxBytes
	if c.maxBytes <= 0 {
		c.maxBytes = defaultScriptMaxBytes
	}

	err = c.run(context.Background(), func(l *lua.State) error {
		l.Global("solve")
		isFn := l.IsFunction(-1)
		l.Pop(1)
		if !isFn {
			return errors.New("chall.lua must define solve(flag)")
		}
		l.Global("value")
		c.hasValue = l.IsFunction(-1)
		l.Pop(1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *scriptCapability) Solve(ctx context.Context, submitted string) (bool, error) {
	var ok bool
	err := c.run(ctx, func(l *lua.State) error {
		l.Global("solve")
		l.PushString(strings.TrimSpace(submitted))
		if err := l.ProtectedCall(1, 1, 0); err != nil {
			return fmt.Errorf("solve: %w", err)
		}
		if l.TypeOf(-1) != lua.TypeBoolean {
			return fmt.Errorf("solve returned %s, want boolean", lua.TypeNameOf(l, -1))
		}
		ok = l.ToBoolean(-1)
		return nil
	})
	return ok, err
}

func (c *scriptCapability) Value(ctx context.Context, n int) (int, error) {
	if !c.hasValue {
		return c.meta.Points, nil
	}
	var v int
	err := c.run(ctx, func(l *lua.State) error {
		l.Global("value")
		l.PushInteger(n)
		if err := l.ProtectedCall(1, 1, 0); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		if l.TypeOf(-1) != lua.TypeNumber {
			return fmt.Errorf("value returned %s, want number", lua.TypeNameOf(l, -1))
		}
		got, _ := l.ToInteger(-1)
		if got < 0 {
			return fmt.Errorf("value returned negative %d", got)
		}
		v = got
		return nil
	})
	return v, err
}

// run prepares a sandboxed state, executes the script body and hands the
// state to fn. The count hook aborts execution once the budget is spent
// or ctx is done.
func (c *scriptCapability) run(ctx context.Context, fn func(l *lua.State) error) error {
	l := lua.NewState()
	for _, lib := range sandboxLibs {
		lua.Require(l, lib.Name, lib.Function, true)
		l.Pop(1)
	}
	for _, name := range removedGlobals {
		l.PushNil()
		l.SetGlobal(name)
	}

	// Native builders allocate in one step, out of reach of the count hook.
	var abort error
	tooLarge := func(l *lua.State, fn string) {
		abort = fmt.Errorf("%s: %w (%d bytes)", fn, ErrStringTooLarge, c.maxBytes)
		lua.Errorf(l, "%s", abort.Error())
	}
	l.Global("string")
	l.PushGoFunction(boundedRep(c.maxBytes, tooLarge))
	l.SetField(-2, "rep")
	l.Pop(1)
	l.Global("table")
	l.PushGoFunction(boundedConcat(c.maxBytes, tooLarge))
	l.SetField(-2, "concat")
	l.Pop(1)
	c.pushChallengeTable(l)
	l.SetGlobal("challenge")

	used := 0
	lua.SetDebugHook(l, func(l *lua.State, _ lua.Debug) {
		used += hookStride
		if used > c.budget {
			abort = ErrBudgetExhausted
			lua.Errorf(l, "%s", abort.Error())
		}
		if err := ctx.Err(); err != nil {
			abort = err
			lua.Errorf(l, "%s", err.Error())
		}
	}, lua.MaskCount, hookStride)

	if err := lua.LoadBuffer(l, c.source, scriptFile, "t"); err != nil {
		return fmt.Errorf("compile %s: %w", scriptFile, err)
	}
	err := l.ProtectedCall(0, 0, 0)
	if err == nil {
		err = fn(l)
	}
	if abort != nil {
		return abort
	}
	return err
}

// pushChallengeTable pushes a read-only view of the metadata.
func (c *scriptCapability) pushChallengeTable(l *lua.State) {
	l.NewTable()
	l.NewTable()

	l.NewTable()
	l.PushString(c.meta.ID)
	l.SetField(-2, "id")
	l.PushString(c.meta.Title)
	l.SetField(-2, "title")
	l.PushString(c.meta.Category)
	l.SetField(-2, "category")
	l.PushInteger(c.meta.Points)
	l.SetField(-2, "points")
	l.PushString(c.meta.Flag)
	l.SetField(-2, "flag")
	l.SetField(-2, "__index")

	l.PushGoFunction(func(l *lua.State) int {
		lua.Errorf(l, "challenge table is read-only")
		return 0
	})
	l.SetField(-2, "__newindex")
	l.PushBoolean(false)
	l.SetField(-2, "__metatable")
	l.SetMetaTable(-2)
}

// boundedRep is string.rep refusing results longer than limit bytes.
func boundedRep(limit int, tooLarge func(*lua.State, string)) lua.Function {
	return func(l *lua.State) int {
		s := lua.CheckString(l, 1)
		n := lua.CheckInteger(l, 2)
		sep := lua.OptString(l, 3, "")
		if n <= 0 {
			l.PushString("")
			return 1
		}
		unit := len(s) + len(sep)
		if unit > 0 && n-1 > (limit-len(s))/unit {
			tooLarge(l, "string.rep")
			return 0
		}
		if len(s) > limit {
			tooLarge(l, "string.rep")
			return 0
		}
		var b strings.Builder
		b.Grow(unit*(n-1) + len(s))
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(sep)
			}
			b.WriteString(s)
		}
		l.PushString(b.String())
		return 1
	}
}

// boundedConcat is table.concat refusing results longer than limit bytes.
func boundedConcat(limit int, tooLarge func(*lua.State, string)) lua.Function {
	return func(l *lua.State) int {
		lua.CheckType(l, 1, lua.TypeTable)
		sep := lua.OptString(l, 2, "")
		first := lua.OptInteger(l, 3, 1)
		last := lua.OptInteger(l, 4, lua.LengthEx(l, 1))

		var b strings.Builder
		for i := first; i <= last; i++ {
			l.RawGetInt(1, i)
			if !l.IsString(-1) {
				lua.Errorf(l, "invalid value (at index %d) in table for 'concat'", i)
				return 0
			}
			v, _ := l.ToString(-1)
			l.Pop(1)
			extra := len(v)
			if i > first {
				extra += len(sep)
			}
			if b.Len()+extra > limit {
				tooLarge(l, "table.concat")
				return 0
			}
			if i > first {
				b.WriteString(sep)
			}
			b.WriteString(v)
		}
		l.PushString(b.String())
		return 1
	}
}
