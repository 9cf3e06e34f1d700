package lualib

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const frameTypeName = "frame"

// Column is one named column of a Frame. Numeric columns keep float values,
// everything else is stringified at construction.
type Column struct {
	Name    string
	Numeric bool
	Nums    []float64
	Strs    []string
}

// Frame is a small immutable columnar table. Methods return new frames.
type Frame struct {
	Columns []*Column
	Rows    int
}

// OpenFrame registers the frame userdata type and returns the module table.
func OpenFrame(L *lua.LState) *lua.LTable {
	mt := L.NewTypeMetatable(frameTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), frameMethods))
	L.SetField(mt, "__tostring", L.NewFunction(frameToString))

	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"new": frameNew,
	})
}

var frameMethods = map[string]lua.LGFunction{
	"head":     frameHead,
	"tail":     frameTail,
	"len":      frameRows,
	"cols":     frameCols,
	"col":      frameCol,
	"sort":     frameSort,
	"describe": frameDescribe,
}

func checkFrame(L *lua.LState) *Frame {
	ud := L.CheckUserData(1)
	f, ok := ud.Value.(*Frame)
	if !ok {
		L.ArgError(1, "frame expected")
	}
	return f
}

func pushFrame(L *lua.LState, f *Frame) int {
	ud := L.NewUserData()
	ud.Value = f
	L.SetMetatable(ud, L.GetTypeMetatable(frameTypeName))
	L.Push(ud)
	return 1
}

// frameNew constructs a frame from a table of name → array. Column order is
// name-sorted so construction is deterministic regardless of Lua table
// iteration order.
func frameNew(L *lua.LState) int {
	def := L.CheckTable(1)

	type rawCol struct {
		name string
		vals *lua.LTable
	}
	var raw []rawCol
	var badKey bool
	def.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			badKey = true
			return
		}
		vals, ok := v.(*lua.LTable)
		if !ok {
			badKey = true
			return
		}
		raw = append(raw, rawCol{string(name), vals})
	})
	if badKey {
		L.ArgError(1, "expected a table of name = array pairs")
	}
	if len(raw) == 0 {
		L.ArgError(1, "frame needs at least one column")
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].name < raw[j].name })

	f := &Frame{Rows: raw[0].vals.Len()}
	for _, rc := range raw {
		if rc.vals.Len() != f.Rows {
			L.RaiseError("column %q has %d values, want %d", rc.name, rc.vals.Len(), f.Rows)
		}
		f.Columns = append(f.Columns, buildColumn(rc.name, rc.vals))
	}
	return pushFrame(L, f)
}

func buildColumn(name string, vals *lua.LTable) *Column {
	col := &Column{Name: name, Numeric: true}
	for i := 1; i <= vals.Len(); i++ {
		if _, ok := vals.RawGetInt(i).(lua.LNumber); !ok {
			col.Numeric = false
			break
		}
	}
	for i := 1; i <= vals.Len(); i++ {
		v := vals.RawGetInt(i)
		if col.Numeric {
			col.Nums = append(col.Nums, float64(v.(lua.LNumber)))
		} else {
			col.Strs = append(col.Strs, v.String())
		}
	}
	return col
}

func (f *Frame) slice(from, to int) *Frame {
	out := &Frame{Rows: to - from}
	for _, c := range f.Columns {
		nc := &Column{Name: c.Name, Numeric: c.Numeric}
		if c.Numeric {
			nc.Nums = append([]float64(nil), c.Nums[from:to]...)
		} else {
			nc.Strs = append([]string(nil), c.Strs[from:to]...)
		}
		out.Columns = append(out.Columns, nc)
	}
	return out
}

func (f *Frame) column(name string) *Column {
	for _, c := range f.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func frameHead(L *lua.LState) int {
	f := checkFrame(L)
	n := L.OptInt(2, 5)
	if n > f.Rows {
		n = f.Rows
	}
	return pushFrame(L, f.slice(0, n))
}

func frameTail(L *lua.LState) int {
	f := checkFrame(L)
	n := L.OptInt(2, 5)
	if n > f.Rows {
		n = f.Rows
	}
	return pushFrame(L, f.slice(f.Rows-n, f.Rows))
}

func frameRows(L *lua.LState) int {
	L.Push(lua.LNumber(checkFrame(L).Rows))
	return 1
}

func frameCols(L *lua.LState) int {
	f := checkFrame(L)
	t := L.NewTable()
	for _, c := range f.Columns {
		t.Append(lua.LString(c.Name))
	}
	L.Push(t)
	return 1
}

func frameCol(L *lua.LState) int {
	f := checkFrame(L)
	name := L.CheckString(2)
	c := f.column(name)
	if c == nil {
		L.RaiseError("no column %q", name)
	}
	if c.Numeric {
		L.Push(PushFloats(L, c.Nums))
		return 1
	}
	t := L.NewTable()
	for _, s := range c.Strs {
		t.Append(lua.LString(s))
	}
	L.Push(t)
	return 1
}

// frameSort returns a new frame ordered by one column, ascending unless the
// second argument is true.
func frameSort(L *lua.LState) int {
	f := checkFrame(L)
	name := L.CheckString(2)
	desc := L.OptBool(3, false)

	key := f.column(name)
	if key == nil {
		L.RaiseError("no column %q", name)
	}

	perm := make([]int, f.Rows)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a, b := perm[i], perm[j]
		var less bool
		if key.Numeric {
			less = key.Nums[a] < key.Nums[b]
		} else {
			less = key.Strs[a] < key.Strs[b]
		}
		if desc {
			return !less
		}
		return less
	})

	out := &Frame{Rows: f.Rows}
	for _, c := range f.Columns {
		nc := &Column{Name: c.Name, Numeric: c.Numeric}
		for _, idx := range perm {
			if c.Numeric {
				nc.Nums = append(nc.Nums, c.Nums[idx])
			} else {
				nc.Strs = append(nc.Strs, c.Strs[idx])
			}
		}
		out.Columns = append(out.Columns, nc)
	}
	return pushFrame(L, out)
}

// frameDescribe returns summary statistics for the numeric columns.
func frameDescribe(L *lua.LState) int {
	f := checkFrame(L)
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %8s %12s %12s %12s %12s\n",
		"column", "count", "mean", "std", "min", "max")
	for _, c := range f.Columns {
		if !c.Numeric || len(c.Nums) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%-12s %8d %12.4f %12.4f %12.4f %12.4f\n",
			c.Name, len(c.Nums),
			stat.Mean(c.Nums, nil), stat.StdDev(c.Nums, nil),
			floats.Min(c.Nums), floats.Max(c.Nums))
	}
	L.Push(lua.LString(b.String()))
	return 1
}

// frameToString renders the first rows as a fixed-width text table.
func frameToString(L *lua.LState) int {
	f := checkFrame(L)

	shown := f.Rows
	if shown > 10 {
		shown = 10
	}

	var b strings.Builder
	for i, c := range f.Columns {
		if i > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%-12s", c.Name)
	}
	b.WriteString("\n")
	for row := 0; row < shown; row++ {
		for i, c := range f.Columns {
			if i > 0 {
				b.WriteString("  ")
			}
			if c.Numeric {
				fmt.Fprintf(&b, "%-12s", strconv.FormatFloat(c.Nums[row], 'g', 6, 64))
			} else {
				fmt.Fprintf(&b, "%-12s", c.Strs[row])
			}
		}
		b.WriteString("\n")
	}
	if shown < f.Rows {
		fmt.Fprintf(&b, "... (%d rows)\n", f.Rows)
	}
	L.Push(lua.LString(b.String()))
	return 1
}
