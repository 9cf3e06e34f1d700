package sandbox

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/michaelbrown/plotbox/internal/policy"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func testExecutor(t *testing.T) *Executor {
	t.Helper()
	return NewExecutor(policy.Default())
}

func TestRunArithmeticPrint(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `print(2 + 2)`})
	if !res.Success {
		t.Fatalf("run failed: %s: %s", res.ErrKind, res.ErrMessage)
	}
	if res.Output != "4\n" {
		t.Errorf("output = %q, want %q", res.Output, "4\n")
	}
	if res.Image != nil {
		t.Error("expected no image")
	}
	if len(res.Bindings) != 0 {
		t.Errorf("bindings = %v, want none", res.Bindings)
	}
}

func TestRunRejectsDisallowedImport(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `local o = require("os")
o.execute("ls")`})
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.ErrKind != ErrValidation {
		t.Errorf("kind = %q, want %q", res.ErrKind, ErrValidation)
	}
	if !strings.Contains(res.ErrMessage, `"os"`) {
		t.Errorf("message = %q, want it to name the os module", res.ErrMessage)
	}
	if res.Output != "" {
		t.Errorf("output = %q, want empty (nothing must run)", res.Output)
	}
}

func TestRunRejectsFunctionDefinition(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `function f() end`})
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.ErrKind != ErrValidation {
		t.Errorf("kind = %q, want %q", res.ErrKind, ErrValidation)
	}
	if !strings.Contains(res.ErrMessage, "function definitions") {
		t.Errorf("message = %q, want it to name the construct", res.ErrMessage)
	}
}

func TestRunSyntaxError(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `print(`})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrKind != ErrSyntax {
		t.Errorf("kind = %q, want %q", res.ErrKind, ErrSyntax)
	}
}

func TestRunProducesPlot(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `x = num.linspace(0, 10, 50)
plt.line(x, num.sin(x))
plt.title("sine")`})
	if !res.Success {
		t.Fatalf("run failed: %s: %s", res.ErrKind, res.ErrMessage)
	}
	if len(res.Image) == 0 {
		t.Fatal("expected a rendered image")
	}
	if !bytes.HasPrefix(res.Image, pngMagic) {
		t.Error("image is not a PNG")
	}

	// Figure state must not leak into the next run.
	res2 := e.Run(context.Background(), Request{Source: `print(1)`})
	if !res2.Success {
		t.Fatalf("second run failed: %s", res2.ErrMessage)
	}
	if res2.Image != nil {
		t.Error("second run inherited a figure from the first")
	}
}

func TestRunRuntimeError(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `x = 1 + nil`})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrKind != ErrRuntime {
		t.Errorf("kind = %q, want %q", res.ErrKind, ErrRuntime)
	}
	if !strings.Contains(res.ErrMessage, "arithmetic") {
		t.Errorf("message = %q, want an arithmetic error", res.ErrMessage)
	}
	if res.Traceback == "" {
		t.Error("expected a non-empty traceback")
	}
}

func TestRunPartialOutputOnFailure(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `print("before the crash")
x = 1 + nil`})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Output, "before the crash") {
		t.Errorf("output = %q, want the pre-failure text preserved", res.Output)
	}
}

func TestRunCollectsBindings(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `x = 42
s = "hello"
_scratch = 1`})
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrMessage)
	}
	if res.Bindings["x"] != "42" {
		t.Errorf("x = %q, want %q", res.Bindings["x"], "42")
	}
	if res.Bindings["s"] != "hello" {
		t.Errorf("s = %q, want %q", res.Bindings["s"], "hello")
	}
	if _, ok := res.Bindings["_scratch"]; ok {
		t.Error("underscore-prefixed names must not be reported")
	}
}

func TestRunsAreIsolated(t *testing.T) {
	e := testExecutor(t)

	if res := e.Run(context.Background(), Request{Source: `x = 99`}); !res.Success {
		t.Fatalf("first run failed: %s", res.ErrMessage)
	}

	res := e.Run(context.Background(), Request{Source: `print(x)`})
	if !res.Success {
		t.Fatalf("second run failed: %s", res.ErrMessage)
	}
	if res.Output != "nil\n" {
		t.Errorf("output = %q, want %q (namespaces must not be shared)", res.Output, "nil\n")
	}
}

func TestRunSecondRunUnaffectedByFailure(t *testing.T) {
	e := testExecutor(t)

	e.Run(context.Background(), Request{Source: `print("doomed")
x = 1 + nil`})

	res := e.Run(context.Background(), Request{Source: `print(2 + 2)`})
	if !res.Success {
		t.Fatalf("run after failure failed: %s", res.ErrMessage)
	}
	if res.Output != "4\n" {
		t.Errorf("output = %q, want %q", res.Output, "4\n")
	}
}

func TestRunTimeout(t *testing.T) {
	pol := policy.Default()
	pol.MaxTimeout = 50 * time.Millisecond
	e := NewExecutor(pol)

	start := time.Now()
	res := e.Run(context.Background(), Request{Source: `while true do end`})
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.ErrKind != ErrTimeout {
		t.Errorf("kind = %q, want %q", res.ErrKind, ErrTimeout)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v, the budget did not abort it", elapsed)
	}
}

func TestRunOutputTruncation(t *testing.T) {
	pol := policy.Default()
	pol.MaxOutput = 64
	e := NewExecutor(pol)

	res := e.Run(context.Background(), Request{Source: `for i = 1, 100 do print("spam spam spam") end`})
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrMessage)
	}
	if !strings.Contains(res.Output, "output truncated") {
		t.Error("expected a truncation marker")
	}
	if len(res.Output) > 200 {
		t.Errorf("output is %d bytes, truncation did not cap it", len(res.Output))
	}
}

func TestRunRequireAllowedModule(t *testing.T) {
	e := testExecutor(t)

	res := e.Run(context.Background(), Request{Source: `local m = require("math")
print(m.floor(3.7))`})
	if !res.Success {
		t.Fatalf("run failed: %s: %s", res.ErrKind, res.ErrMessage)
	}
	if res.Output != "3\n" {
		t.Errorf("output = %q, want %q", res.Output, "3\n")
	}
}

func TestRunConcurrent(t *testing.T) {
	e := testExecutor(t)

	done := make(chan *Result, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- e.Run(context.Background(), Request{Source: `x = num.linspace(0, 1, 20)
plt.line(x, x)
print("ok")`})
		}()
	}
	for i := 0; i < 8; i++ {
		res := <-done
		if !res.Success {
			t.Errorf("concurrent run failed: %s", res.ErrMessage)
			continue
		}
		if res.Output != "ok\n" {
			t.Errorf("output = %q, want %q", res.Output, "ok\n")
		}
		if len(res.Image) == 0 {
			t.Error("concurrent run lost its figure")
		}
	}
}
