// Package lualib provides the curated script-visible libraries: numeric
// computation, columnar frames, and chart building. Each Open* function
// registers a module table on a single interpreter state; the tables hold
// Go-backed functions only, nothing that reaches the host process.
package lualib

import (
	"fmt"
	"math"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OpenNumeric builds the numeric module: array construction, elementwise
// math, aggregates and regression over gonum, plus a numeric.random
// subtable with its own seedable source.
func OpenNumeric(L *lua.LState) *lua.LTable {
	mod := L.SetFuncs(L.NewTable(), numericFuncs)

	for name, fn := range map[string]func(float64) float64{
		"sin":  math.Sin,
		"cos":  math.Cos,
		"tan":  math.Tan,
		"exp":  math.Exp,
		"log":  math.Log,
		"sqrt": math.Sqrt,
		"abs":  math.Abs,
	} {
		L.SetField(mod, name, L.NewFunction(elementwise(fn)))
	}

	L.SetField(mod, "random", openRandom(L))
	return mod
}

var numericFuncs = map[string]lua.LGFunction{
	"linspace": numLinspace,
	"arange":   numArange,
	"zeros":    numZeros,
	"ones":     numOnes,
	"fill":     numFill,
	"pow":      numPow,
	"sum":      aggregate(func(xs []float64) float64 { return floats.Sum(xs) }),
	"mean":     aggregate(func(xs []float64) float64 { return stat.Mean(xs, nil) }),
	"std":      aggregate(func(xs []float64) float64 { return stat.StdDev(xs, nil) }),
	"variance": aggregate(func(xs []float64) float64 { return stat.Variance(xs, nil) }),
	"median":   aggregate(median),
	"min":      aggregate(func(xs []float64) float64 { return floats.Min(xs) }),
	"max":      aggregate(func(xs []float64) float64 { return floats.Max(xs) }),
	"cumsum":   numCumsum,
	"scale":    numScale,
	"shift":    numShift,
	"dot":      numDot,
	"corr":     numCorr,
	"cov":      numCov,
	"linreg":   numLinreg,
}

// CheckFloats reads a 1-based Lua array of numbers from the given argument
// position. Shared with the frame and plot modules.
func CheckFloats(L *lua.LState, n int) []float64 {
	tbl := L.CheckTable(n)
	out := make([]float64, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		v, ok := tbl.RawGetInt(i).(lua.LNumber)
		if !ok {
			L.ArgError(n, fmt.Sprintf("element %d is not a number", i))
		}
		out = append(out, float64(v))
	}
	return out
}

// PushFloats converts a float slice to a Lua array table.
func PushFloats(L *lua.LState, xs []float64) *lua.LTable {
	t := L.NewTable()
	for _, x := range xs {
		t.Append(lua.LNumber(x))
	}
	return t
}

// elementwise lifts a scalar function over a number or an array.
func elementwise(fn func(float64) float64) lua.LGFunction {
	return func(L *lua.LState) int {
		switch v := L.Get(1).(type) {
		case lua.LNumber:
			L.Push(lua.LNumber(fn(float64(v))))
		case *lua.LTable:
			xs := CheckFloats(L, 1)
			for i := range xs {
				xs[i] = fn(xs[i])
			}
			L.Push(PushFloats(L, xs))
		default:
			L.ArgError(1, "number or array expected")
		}
		return 1
	}
}

func aggregate(fn func([]float64) float64) lua.LGFunction {
	return func(L *lua.LState) int {
		xs := CheckFloats(L, 1)
		if len(xs) == 0 {
			L.ArgError(1, "array is empty")
		}
		L.Push(lua.LNumber(fn(xs)))
		return 1
	}
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func numLinspace(L *lua.LState) int {
	start := float64(L.CheckNumber(1))
	stop := float64(L.CheckNumber(2))
	n := L.CheckInt(3)
	if n < 1 {
		L.ArgError(3, "count must be positive")
	}
	if n == 1 {
		L.Push(PushFloats(L, []float64{start}))
		return 1
	}
	xs := make([]float64, n)
	floats.Span(xs, start, stop)
	L.Push(PushFloats(L, xs))
	return 1
}

func numArange(L *lua.LState) int {
	start := float64(L.CheckNumber(1))
	stop := float64(L.CheckNumber(2))
	step := float64(L.OptNumber(3, 1))
	if step == 0 {
		L.ArgError(3, "step must not be zero")
	}
	var xs []float64
	if step > 0 {
		for x := start; x < stop; x += step {
			xs = append(xs, x)
		}
	} else {
		for x := start; x > stop; x += step {
			xs = append(xs, x)
		}
	}
	L.Push(PushFloats(L, xs))
	return 1
}

func numZeros(L *lua.LState) int {
	L.Push(PushFloats(L, make([]float64, L.CheckInt(1))))
	return 1
}

func numOnes(L *lua.LState) int {
	n := L.CheckInt(1)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = 1
	}
	L.Push(PushFloats(L, xs))
	return 1
}

func numFill(L *lua.LState) int {
	n := L.CheckInt(1)
	v := float64(L.CheckNumber(2))
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = v
	}
	L.Push(PushFloats(L, xs))
	return 1
}

func numPow(L *lua.LState) int {
	k := float64(L.CheckNumber(2))
	switch v := L.Get(1).(type) {
	case lua.LNumber:
		L.Push(lua.LNumber(math.Pow(float64(v), k)))
	case *lua.LTable:
		xs := CheckFloats(L, 1)
		for i := range xs {
			xs[i] = math.Pow(xs[i], k)
		}
		L.Push(PushFloats(L, xs))
	default:
		L.ArgError(1, "number or array expected")
	}
	return 1
}

func numCumsum(L *lua.LState) int {
	xs := CheckFloats(L, 1)
	dst := make([]float64, len(xs))
	floats.CumSum(dst, xs)
	L.Push(PushFloats(L, dst))
	return 1
}

func numScale(L *lua.LState) int {
	xs := CheckFloats(L, 1)
	k := float64(L.CheckNumber(2))
	out := append([]float64(nil), xs...)
	floats.Scale(k, out)
	L.Push(PushFloats(L, out))
	return 1
}

func numShift(L *lua.LState) int {
	xs := CheckFloats(L, 1)
	c := float64(L.CheckNumber(2))
	out := append([]float64(nil), xs...)
	floats.AddConst(c, out)
	L.Push(PushFloats(L, out))
	return 1
}

func checkSameLen(L *lua.LState) ([]float64, []float64) {
	xs := CheckFloats(L, 1)
	ys := CheckFloats(L, 2)
	if len(xs) != len(ys) {
		L.RaiseError("arrays have different lengths: %d and %d", len(xs), len(ys))
	}
	return xs, ys
}

func numDot(L *lua.LState) int {
	xs, ys := checkSameLen(L)
	L.Push(lua.LNumber(floats.Dot(xs, ys)))
	return 1
}

func numCorr(L *lua.LState) int {
	xs, ys := checkSameLen(L)
	L.Push(lua.LNumber(stat.Correlation(xs, ys, nil)))
	return 1
}

func numCov(L *lua.LState) int {
	xs, ys := checkSameLen(L)
	L.Push(lua.LNumber(stat.Covariance(xs, ys, nil)))
	return 1
}

// numLinreg returns the intercept and slope of an ordinary least squares fit.
func numLinreg(L *lua.LState) int {
	xs, ys := checkSameLen(L)
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	L.Push(lua.LNumber(alpha))
	L.Push(lua.LNumber(beta))
	return 2
}

// openRandom builds the numeric.random subtable around a per-state source.
func openRandom(L *lua.LState) *lua.LTable {
	src := rand.NewSource(uint64(time.Now().UnixNano()))
	rng := rand.New(src)

	mod := L.NewTable()
	L.SetField(mod, "seed", L.NewFunction(func(L *lua.LState) int {
		src.Seed(uint64(L.CheckInt64(1)))
		return 0
	}))
	L.SetField(mod, "rand", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		lo := float64(L.OptNumber(2, 0))
		hi := float64(L.OptNumber(3, 1))
		dist := distuv.Uniform{Min: lo, Max: hi, Src: src}
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = dist.Rand()
		}
		L.Push(PushFloats(L, xs))
		return 1
	}))
	L.SetField(mod, "randn", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		mu := float64(L.OptNumber(2, 0))
		sigma := float64(L.OptNumber(3, 1))
		dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = dist.Rand()
		}
		L.Push(PushFloats(L, xs))
		return 1
	}))
	L.SetField(mod, "choice", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		n := tbl.Len()
		if n == 0 {
			L.ArgError(1, "array is empty")
		}
		L.Push(tbl.RawGetInt(rng.Intn(n) + 1))
		return 1
	}))
	return mod
}
