package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/michaelbrown/plotbox/internal/lualib"
	"github.com/michaelbrown/plotbox/internal/policy"
	"github.com/michaelbrown/plotbox/internal/validator"
)

// Executor validates and runs scripts under a capability policy. Every run
// gets its own output buffer, figure registry, and interpreter state, so a
// single Executor is safe for concurrent use.
type Executor struct {
	pol     policy.Policy
	checker *validator.Validator
}

// NewExecutor creates an Executor for the given policy.
func NewExecutor(pol policy.Policy) *Executor {
	return &Executor{pol: pol, checker: validator.New(pol)}
}

// Run executes one script: validate, build the namespace, run under the
// wall-clock budget, capture output/figure/bindings, tear down. It always
// returns a complete Result and never an error; runtime failures become
// data. Buffered output is returned on failure too, not only on success.
func (e *Executor) Run(ctx context.Context, req Request) *Result {
	outcome := e.checker.Check(req.Source)
	if !outcome.Accepted {
		kind := ErrValidation
		if outcome.Kind == validator.KindSyntax {
			kind = ErrSyntax
		}
		return &Result{ErrKind: kind, ErrMessage: outcome.Reason}
	}

	var buf bytes.Buffer
	sink := &limitWriter{w: &buf, limit: e.pol.MaxOutput}
	figs := lualib.NewFigures()

	L, baseline, err := NewEnvironment(e.pol, sink, figs).Build()
	if err != nil {
		return &Result{ErrKind: ErrEnvironment, ErrMessage: fmt.Sprintf("building environment: %v", err)}
	}
	// Interpreter and figure state are reclaimed on every exit path.
	defer L.Close()
	defer figs.CloseAll()

	runCtx := ctx
	if e.pol.MaxTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.pol.MaxTimeout)
		defer cancel()
	}
	L.SetContext(runCtx)

	if err := L.DoString(req.Source); err != nil {
		kind, msg, tb := classify(runCtx, err)
		return &Result{Output: buf.String(), ErrKind: kind, ErrMessage: msg, Traceback: tb}
	}

	img, err := figs.Render()
	if err != nil {
		msg := fmt.Sprintf("rendering figure: %v", err)
		return &Result{Output: buf.String(), ErrKind: ErrRuntime, ErrMessage: msg, Traceback: msg}
	}

	return &Result{
		Success:  true,
		Output:   buf.String(),
		Image:    img,
		Bindings: collectBindings(L, baseline),
	}
}

// collectBindings gathers globals user code left behind: everything not in
// the baseline namespace and not underscore-prefixed, stringified. The
// conversion is lossy: display strings, not a structured export.
func collectBindings(L *lua.LState, baseline map[string]struct{}) map[string]string {
	bindings := make(map[string]string)
	L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		s := string(name)
		if strings.HasPrefix(s, "_") {
			return
		}
		if _, ok := baseline[s]; ok {
			return
		}
		bindings[s] = L.ToStringMeta(v).String()
	})
	return bindings
}

func classify(ctx context.Context, err error) (kind, msg, tb string) {
	if ctx.Err() != nil {
		return ErrTimeout, fmt.Sprintf("execution exceeded its time budget: %v", ctx.Err()), err.Error()
	}

	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		msg = apiErr.Object.String()
		tb = apiErr.StackTrace
		if tb == "" {
			tb = err.Error()
		}
		if apiErr.Type == lua.ApiErrorSyntax {
			return ErrSyntax, msg, tb
		}
		return ErrRuntime, msg, tb
	}

	return ErrRuntime, err.Error(), err.Error()
}

// limitWriter caps captured output at the policy's byte budget, appending
// a single truncation marker once the budget is spent. A limit of zero or
// less means unlimited.
type limitWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	if lw.limit <= 0 {
		return lw.w.Write(p)
	}
	if lw.truncated {
		return len(p), nil
	}
	if lw.written+len(p) > lw.limit {
		clip := lw.limit - lw.written
		if clip > 0 {
			lw.w.Write(p[:clip])
			lw.written += clip
		}
		lw.truncated = true
		io.WriteString(lw.w, "\n... (output truncated)\n")
		return len(p), nil
	}
	n, err := lw.w.Write(p)
	lw.written += n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
