package lualib

import (
	"math"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func numericState(t *testing.T) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	L.SetGlobal("num", OpenNumeric(L))
	return L
}

// evalNumber runs source that assigns to the global r and returns r.
func evalNumber(t *testing.T, L *lua.LState, source string) float64 {
	t.Helper()
	if err := L.DoString(source); err != nil {
		t.Fatalf("DoString(%q): %v", source, err)
	}
	v, ok := L.GetGlobal("r").(lua.LNumber)
	if !ok {
		t.Fatalf("r is not a number after %q", source)
	}
	return float64(v)
}

func TestNumericAggregates(t *testing.T) {
	L := numericState(t)

	tests := []struct {
		name   string
		source string
		want   float64
	}{
		{"sum", `r = num.sum({1, 2, 3, 4})`, 10},
		{"mean", `r = num.mean({1, 2, 3})`, 2},
		{"min", `r = num.min({3, 1, 2})`, 1},
		{"max", `r = num.max({3, 1, 2})`, 3},
		{"median", `r = num.median({1, 2, 3, 4, 5})`, 3},
		{"dot", `r = num.dot({1, 2}, {3, 4})`, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalNumber(t, L, tt.source)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestNumericStd(t *testing.T) {
	L := numericState(t)

	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9} is ~2.138.
	got := evalNumber(t, L, `r = num.std({2, 4, 4, 4, 5, 5, 7, 9})`)
	if math.Abs(got-2.138089935) > 1e-6 {
		t.Errorf("std = %g", got)
	}
}

func TestNumericLinspace(t *testing.T) {
	L := numericState(t)

	if err := L.DoString(`xs = num.linspace(0, 10, 11)`); err != nil {
		t.Fatal(err)
	}
	xs := L.GetGlobal("xs").(*lua.LTable)
	if xs.Len() != 11 {
		t.Fatalf("len = %d, want 11", xs.Len())
	}
	if first := float64(xs.RawGetInt(1).(lua.LNumber)); first != 0 {
		t.Errorf("first = %g, want 0", first)
	}
	if last := float64(xs.RawGetInt(11).(lua.LNumber)); last != 10 {
		t.Errorf("last = %g, want 10", last)
	}
}

func TestNumericArange(t *testing.T) {
	L := numericState(t)

	if err := L.DoString(`xs = num.arange(0, 5)`); err != nil {
		t.Fatal(err)
	}
	if n := L.GetGlobal("xs").(*lua.LTable).Len(); n != 5 {
		t.Errorf("len = %d, want 5", n)
	}
}

func TestNumericElementwise(t *testing.T) {
	L := numericState(t)

	got := evalNumber(t, L, `r = num.sqrt(16)`)
	if got != 4 {
		t.Errorf("sqrt(16) = %g", got)
	}

	if err := L.DoString(`ys = num.sqrt({1, 4, 9})`); err != nil {
		t.Fatal(err)
	}
	ys := L.GetGlobal("ys").(*lua.LTable)
	if v := float64(ys.RawGetInt(3).(lua.LNumber)); v != 3 {
		t.Errorf("sqrt({1,4,9})[3] = %g, want 3", v)
	}
}

func TestNumericCumsum(t *testing.T) {
	L := numericState(t)

	if err := L.DoString(`xs = num.cumsum({1, 2, 3})`); err != nil {
		t.Fatal(err)
	}
	xs := L.GetGlobal("xs").(*lua.LTable)
	want := []float64{1, 3, 6}
	for i, w := range want {
		if v := float64(xs.RawGetInt(i + 1).(lua.LNumber)); v != w {
			t.Errorf("cumsum[%d] = %g, want %g", i+1, v, w)
		}
	}
}

func TestNumericLinreg(t *testing.T) {
	L := numericState(t)

	// y = 2x + 1 exactly.
	if err := L.DoString(`a, b = num.linreg({0, 1, 2, 3}, {1, 3, 5, 7})`); err != nil {
		t.Fatal(err)
	}
	alpha := float64(L.GetGlobal("a").(lua.LNumber))
	beta := float64(L.GetGlobal("b").(lua.LNumber))
	if math.Abs(alpha-1) > 1e-9 || math.Abs(beta-2) > 1e-9 {
		t.Errorf("linreg = (%g, %g), want (1, 2)", alpha, beta)
	}
}

func TestNumericCorrPerfect(t *testing.T) {
	L := numericState(t)

	got := evalNumber(t, L, `r = num.corr({1, 2, 3}, {2, 4, 6})`)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("corr = %g, want 1", got)
	}
}

func TestNumericLengthMismatch(t *testing.T) {
	L := numericState(t)

	if err := L.DoString(`num.corr({1, 2}, {1})`); err == nil {
		t.Error("expected an error for mismatched lengths")
	}
}

func TestNumericRandomSeeded(t *testing.T) {
	L := numericState(t)

	source := `num.random.seed(42)
xs = num.random.randn(5)`
	if err := L.DoString(source); err != nil {
		t.Fatal(err)
	}
	first := L.GetGlobal("xs").(*lua.LTable)

	if err := L.DoString(source); err != nil {
		t.Fatal(err)
	}
	second := L.GetGlobal("xs").(*lua.LTable)

	for i := 1; i <= 5; i++ {
		a := float64(first.RawGetInt(i).(lua.LNumber))
		b := float64(second.RawGetInt(i).(lua.LNumber))
		if a != b {
			t.Errorf("seeded draw %d differs: %g vs %g", i, a, b)
		}
	}
}

func TestNumericRandomRange(t *testing.T) {
	L := numericState(t)

	if err := L.DoString(`num.random.seed(1)
xs = num.random.rand(100, 5, 10)`); err != nil {
		t.Fatal(err)
	}
	xs := L.GetGlobal("xs").(*lua.LTable)
	for i := 1; i <= xs.Len(); i++ {
		v := float64(xs.RawGetInt(i).(lua.LNumber))
		if v < 5 || v >= 10 {
			t.Errorf("rand value %g outside [5, 10)", v)
		}
	}
}
