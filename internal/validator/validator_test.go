package validator

import (
	"strings"
	"testing"

	"github.com/michaelbrown/plotbox/internal/policy"
)

func testValidator(t *testing.T) *Validator {
	t.Helper()
	return New(policy.Default())
}

func TestCheckAccepts(t *testing.T) {
	v := testValidator(t)

	tests := []struct {
		name   string
		source string
	}{
		{"arithmetic print", `print(2 + 2)`},
		{"local assignment", `local x = 1 + 2`},
		{"numeric loop", `s = 0
for i = 1, 10 do s = s + i end`},
		{"generic loop", `t = {1, 2, 3}
for i, x in ipairs(t) do print(i, x) end`},
		{"while and if", `n = 3
while n > 0 do
  if n == 1 then break end
  n = n - 1
end`},
		{"table constructor", `t = {a = 1, b = "two", 3}`},
		{"allowed require root", `local n = require("numeric")`},
		{"allowed require alias", `local p = require("plt")`},
		{"allowed require submodule", `local r = require("numeric.random")`},
		{"allowed require stdlib", `local m = require("math")`},
		{"library calls", `x = num.linspace(0, 10, 50)
plt.line(x, num.sin(x))`},
		{"method call", `f = frame.new({a = {1, 2, 3}})
print(f:head(2))`},
		{"string library", `print(string.rep("ab", 3))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Check(tt.source)
			if !out.Accepted {
				t.Errorf("Check rejected: %s", out.Reason)
			}
		})
	}
}

func TestCheckRejects(t *testing.T) {
	v := testValidator(t)

	tests := []struct {
		name   string
		source string
		want   string // substring of the rejection reason
	}{
		{"function definition", `function f() end`, "function definitions"},
		{"anonymous function", `f = function() return 1 end`, "function definitions"},
		{"local function", `local function f() end`, "function definitions"},
		{"goto", `goto done
::done::`, "goto"},
		{"disallowed require", `local o = require("os")`, `module "os"`},
		{"disallowed require socket", `require("socket")`, `module "socket"`},
		{"computed require", `local m = require("nu" .. "meric")`, "computed module name"},
		{"bare loader reference", `f = load`, `"load"`},
		{"loader call", `load("print(1)")()`, `"load"`},
		{"dofile", `dofile("x.lua")`, `"dofile"`},
		{"pcall", `ok = pcall(print, 1)`, `"pcall"`},
		{"os global", `os.execute("ls")`, `"os"`},
		{"metatable access", `m = getmetatable("")`, `"getmetatable"`},
		{"metamethod field", `x = ("").__index`, `"__index"`},
		{"denied field on table", `t = {}
t.__metatable = 1`, `"__metatable"`},
		{"denied method call", `t = {}
t:__call()`, `"__call"`},
		{"syntax error", `print(`, "syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Check(tt.source)
			if out.Accepted {
				t.Fatalf("Check accepted %q", tt.source)
			}
			if !strings.Contains(out.Reason, tt.want) {
				t.Errorf("reason = %q, want substring %q", out.Reason, tt.want)
			}
		})
	}
}

func TestCheckRejectionNamesKind(t *testing.T) {
	v := testValidator(t)

	if out := v.Check(`print(`); out.Kind != KindSyntax {
		t.Errorf("kind = %q, want %q", out.Kind, KindSyntax)
	}
	if out := v.Check(`function f() end`); out.Kind != KindForbidden {
		t.Errorf("kind = %q, want %q", out.Kind, KindForbidden)
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	v := testValidator(t)

	for _, source := range []string{
		`print(2 + 2)`,
		`require("os")`,
		`function f() end`,
	} {
		first := v.Check(source)
		second := v.Check(source)
		if first != second {
			t.Errorf("Check(%q) not idempotent: %+v vs %+v", source, first, second)
		}
	}
}

func TestCheckReportsLine(t *testing.T) {
	v := testValidator(t)

	out := v.Check(`x = 1
y = 2
function f() end`)
	if out.Accepted {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(out.Reason, "line 3") {
		t.Errorf("reason = %q, want line 3", out.Reason)
	}
}

func TestCheckStopsAtFirstViolation(t *testing.T) {
	v := testValidator(t)

	out := v.Check(`require("os")
function f() end`)
	if out.Accepted {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(out.Reason, `"os"`) {
		t.Errorf("reason = %q, want the first violation (os import)", out.Reason)
	}
}
