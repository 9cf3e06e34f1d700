package sandbox

import (
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/michaelbrown/plotbox/internal/lualib"
	"github.com/michaelbrown/plotbox/internal/policy"
)

// Environment builds one restricted namespace per execution. The output
// sink and figure registry are injected so every run has its own; nothing
// mutable is shared between two builds.
type Environment struct {
	pol  policy.Policy
	sink io.Writer
	figs *lualib.Figures
}

// NewEnvironment creates a builder for one execution.
func NewEnvironment(pol policy.Policy, sink io.Writer, figs *lualib.Figures) *Environment {
	return &Environment{pol: pol, sink: sink, figs: figs}
}

// Build returns a fresh interpreter state and the set of baseline global
// names present before user code runs. The namespace is allowlist-first:
// the safe standard libraries are opened, then every global not in the
// builtin allowlist is removed, then print, the gated require, and the
// library handles are bound.
func (e *Environment) Build() (*lua.LState, map[string]struct{}, error) {
	if e.sink == nil {
		return nil, nil, fmt.Errorf("no output sink")
	}
	if e.figs == nil {
		return nil, nil, fmt.Errorf("no figure registry")
	}
	if len(e.pol.AllowedBuiltins) == 0 {
		return nil, nil, fmt.Errorf("policy allows no builtins")
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	e.strip(L)

	L.SetGlobal("print", L.NewFunction(e.printFn))

	modules := e.bindLibraries(L)
	L.SetGlobal("require", L.NewFunction(e.requireFrom(modules)))

	return L, globalNames(L), nil
}

// strip removes every global the builtin allowlist does not name. The safe
// standard library tables stay; base-library loaders, reflection and
// exception machinery go, whatever OpenBase happened to install.
func (e *Environment) strip(L *lua.LState) {
	keep := map[string]bool{
		"math":   true,
		"string": true,
		"table":  true,
	}
	for _, b := range e.pol.AllowedBuiltins {
		keep[b] = true
	}

	var remove []string
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if !keep[string(name)] {
			remove = append(remove, string(name))
		}
	})
	for _, name := range remove {
		L.SetGlobal(name, lua.LNil)
	}
}

// printFn routes console output to the injected sink, tab-separated like
// the stock print.
func (e *Environment) printFn(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, top)
	for i := 1; i <= top; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(e.sink, strings.Join(parts, "\t"))
	return 0
}

// bindLibraries registers the curated libraries under their canonical and
// short-alias names and returns the table the gated require resolves from.
func (e *Environment) bindLibraries(L *lua.LState) map[string]*lua.LTable {
	modules := make(map[string]*lua.LTable)

	for _, b := range []struct {
		canonical, alias string
		tbl              *lua.LTable
	}{
		{"numeric", "num", lualib.OpenNumeric(L)},
		{"frame", "df", lualib.OpenFrame(L)},
		{"plot", "plt", lualib.OpenPlot(L, e.figs)},
	} {
		L.SetGlobal(b.canonical, b.tbl)
		L.SetGlobal(b.alias, b.tbl)
		modules[b.canonical] = b.tbl
		modules[b.alias] = b.tbl
	}

	for _, name := range []string{"math", "string", "table"} {
		if t, ok := L.GetGlobal(name).(*lua.LTable); ok {
			modules[name] = t
		}
	}

	return modules
}

// requireFrom returns the require replacement. It re-checks the module
// allowlist at call time (the real loader would let code bypass the
// validator's import check) and resolves dotted submodule paths against the
// pre-bound tables only.
func (e *Environment) requireFrom(modules map[string]*lua.LTable) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		if !e.pol.IsModuleAllowed(name) {
			L.RaiseError("module %q is not allowed", name)
			return 0
		}

		parts := strings.Split(name, ".")
		root, ok := modules[parts[0]]
		if !ok {
			L.RaiseError("module %q is not available", name)
			return 0
		}

		var val lua.LValue = root
		for _, part := range parts[1:] {
			tbl, ok := val.(*lua.LTable)
			if !ok {
				L.RaiseError("module %q is not available", name)
				return 0
			}
			val = tbl.RawGetString(part)
			if val == lua.LNil {
				L.RaiseError("module %q is not available", name)
				return 0
			}
		}
		L.Push(val)
		return 1
	}
}

func globalNames(L *lua.LState) map[string]struct{} {
	names := make(map[string]struct{})
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if name, ok := k.(lua.LString); ok {
			names[string(name)] = struct{}{}
		}
	})
	return names
}
