// Package sandbox runs vetted scripts in a restricted in-process Lua
// environment and captures their side effects as data.
//
// The restriction is language-level only: static validation plus an
// allowlist-built namespace. It is best-effort, not a hard security
// boundary: there is no OS-level isolation, syscall filtering, or memory
// quota here. Deployments that need one should wrap executions in an
// external sandbox as well.
package sandbox

import "context"

// Request describes one script execution. The source is read-only to the
// sandbox.
type Request struct {
	Source string
}

// Error kinds carried by failed Results.
const (
	ErrSyntax      = "syntax"      // source failed to parse
	ErrValidation  = "validation"  // source contains a disallowed construct
	ErrEnvironment = "environment" // namespace construction failed
	ErrRuntime     = "runtime"     // vetted code raised during execution
	ErrTimeout     = "timeout"     // run exceeded its wall-clock budget
)

// Result is the complete outcome of one execution. It is the only artifact
// that survives the call; the namespace and figure state are torn down
// before Run returns.
type Result struct {
	Success  bool
	Output   string            // captured console text (partial on failure)
	Image    []byte            // rendered PNG, nil when no figure was opened
	Bindings map[string]string // post-run globals, stringified

	ErrKind    string
	ErrMessage string
	Traceback  string
}

// Runner executes scripts. Implementations must return a well-formed Result
// for every input and never propagate an error to the caller.
type Runner interface {
	Run(ctx context.Context, req Request) *Result
}
