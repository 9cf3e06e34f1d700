package policy

import (
	"strings"
	"time"
)

// Policy defines the capability set for script execution: which modules can
// be required, which builtins survive in the namespace, and which names and
// fields are denied outright. It also carries the per-run budgets.
type Policy struct {
	// AllowedModules are exact module names accepted by require, including
	// the short aliases of the library roots.
	AllowedModules []string

	// ModuleRoots are library roots whose dotted submodules are accepted
	// (e.g. "numeric" admits "numeric.random").
	ModuleRoots []string

	// AllowedBuiltins are the only globals kept after the namespace is
	// stripped. Everything else from the opened libraries is removed.
	AllowedBuiltins []string

	// DeniedGlobals are identifiers the validator rejects wherever they are
	// referenced: loaders, reflection, exception machinery.
	DeniedGlobals []string

	// DeniedFields are field/method names the validator rejects on any
	// access. Any "__"-prefixed field is denied regardless of this list.
	DeniedFields []string

	MaxTimeout time.Duration // wall-clock budget per run
	MaxOutput  int           // captured stdout byte budget per run
}

// Default returns the stock capability set.
func Default() Policy {
	return Policy{
		AllowedModules: []string{
			// Library roots and their short aliases
			"numeric", "num",
			"frame", "df",
			"plot", "plt",
			// Safe Lua standard libraries
			"math", "string", "table",
		},
		ModuleRoots: []string{"numeric", "frame", "plot"},
		AllowedBuiltins: []string{
			"print",
			"ipairs", "pairs", "next", "select", "unpack",
			"tostring", "tonumber",
			"error",
			"require",
		},
		DeniedGlobals: []string{
			"load", "loadstring", "dofile", "loadfile",
			"require", // bare references; calls get the import check instead
			"pcall", "xpcall", "assert",
			"rawget", "rawset", "rawequal",
			"getmetatable", "setmetatable",
			"getfenv", "setfenv",
			"collectgarbage", "newproxy", "module",
			"io", "os", "debug", "package", "coroutine", "channel",
			"_G",
		},
		DeniedFields: []string{
			"__index", "__newindex", "__metatable", "__call", "__mode", "__gc",
		},
		MaxTimeout: 30 * time.Second,
		MaxOutput:  64 * 1024,
	}
}

// IsModuleAllowed checks a require path against the allowlist. Exact entries
// match as-is; module roots also admit their dotted submodules.
func (p Policy) IsModuleAllowed(name string) bool {
	for _, m := range p.AllowedModules {
		if m == name {
			return true
		}
	}
	for _, root := range p.ModuleRoots {
		if name == root || strings.HasPrefix(name, root+".") {
			return true
		}
	}
	return false
}

// IsBuiltinAllowed reports whether a global survives namespace stripping.
func (p Policy) IsBuiltinAllowed(name string) bool {
	for _, b := range p.AllowedBuiltins {
		if b == name {
			return true
		}
	}
	return false
}

// IsGlobalDenied reports whether an identifier reference is rejected.
func (p Policy) IsGlobalDenied(name string) bool {
	for _, d := range p.DeniedGlobals {
		if d == name {
			return true
		}
	}
	return false
}

// IsFieldDenied reports whether a field or method access is rejected.
// The "__" prefix covers the whole metamethod namespace.
func (p Policy) IsFieldDenied(name string) bool {
	if strings.HasPrefix(name, "__") {
		return true
	}
	for _, d := range p.DeniedFields {
		if d == name {
			return true
		}
	}
	return false
}
