package lualib

import (
	"bytes"

	lua "github.com/yuin/gopher-lua"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Figures is a call-local figure registry. Each execution gets its own
// instance, which is what makes concurrent runs safe: there is no
// process-wide "current figure" state anywhere.
type Figures struct {
	figs []*figure
}

type figure struct {
	p      *plot.Plot
	series int
}

// NewFigures creates an empty registry.
func NewFigures() *Figures {
	return &Figures{}
}

// current returns the active (last) figure, creating one on first use.
func (fs *Figures) current() *figure {
	if len(fs.figs) == 0 {
		return fs.add()
	}
	return fs.figs[len(fs.figs)-1]
}

func (fs *Figures) add() *figure {
	fig := &figure{p: plot.New()}
	fs.figs = append(fs.figs, fig)
	return fig
}

// HasOpen reports whether any figure was opened during the run.
func (fs *Figures) HasOpen() bool {
	return len(fs.figs) > 0
}

// Render encodes the last-active figure as an in-memory PNG. Returns nil
// bytes when no figure is open.
func (fs *Figures) Render() ([]byte, error) {
	if !fs.HasOpen() {
		return nil, nil
	}
	fig := fs.figs[len(fs.figs)-1]
	wt, err := fig.p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CloseAll discards every open figure.
func (fs *Figures) CloseAll() {
	fs.figs = nil
}

// OpenPlot builds the plot module bound to the given registry.
func OpenPlot(L *lua.LState, figs *Figures) *lua.LTable {
	mod := L.NewTable()
	funcs := map[string]lua.LGFunction{
		"figure": func(L *lua.LState) int {
			figs.add()
			return 0
		},
		"line": func(L *lua.LState) int {
			fig := figs.current()
			ln, err := plotter.NewLine(checkXYs(L))
			if err != nil {
				L.RaiseError("plot.line: %v", err)
			}
			ln.Color = plotutil.Color(fig.series)
			fig.series++
			fig.p.Add(ln)
			if name := L.OptString(3, ""); name != "" {
				fig.p.Legend.Add(name, ln)
			}
			return 0
		},
		"scatter": func(L *lua.LState) int {
			fig := figs.current()
			sc, err := plotter.NewScatter(checkXYs(L))
			if err != nil {
				L.RaiseError("plot.scatter: %v", err)
			}
			sc.GlyphStyle.Color = plotutil.Color(fig.series)
			fig.series++
			fig.p.Add(sc)
			if name := L.OptString(3, ""); name != "" {
				fig.p.Legend.Add(name, sc)
			}
			return 0
		},
		"bar": func(L *lua.LState) int {
			fig := figs.current()
			vs := CheckFloats(L, 1)
			bc, err := plotter.NewBarChart(plotter.Values(vs), vg.Points(20))
			if err != nil {
				L.RaiseError("plot.bar: %v", err)
			}
			bc.Color = plotutil.Color(fig.series)
			fig.series++
			fig.p.Add(bc)
			if labels := L.OptTable(2, nil); labels != nil {
				names := make([]string, 0, labels.Len())
				for i := 1; i <= labels.Len(); i++ {
					names = append(names, labels.RawGetInt(i).String())
				}
				fig.p.NominalX(names...)
			}
			return 0
		},
		"hist": func(L *lua.LState) int {
			fig := figs.current()
			vs := CheckFloats(L, 1)
			bins := L.OptInt(2, 10)
			h, err := plotter.NewHist(plotter.Values(vs), bins)
			if err != nil {
				L.RaiseError("plot.hist: %v", err)
			}
			fig.p.Add(h)
			return 0
		},
		"title": func(L *lua.LState) int {
			figs.current().p.Title.Text = L.CheckString(1)
			return 0
		},
		"xlabel": func(L *lua.LState) int {
			figs.current().p.X.Label.Text = L.CheckString(1)
			return 0
		},
		"ylabel": func(L *lua.LState) int {
			figs.current().p.Y.Label.Text = L.CheckString(1)
			return 0
		},
		"grid": func(L *lua.LState) int {
			figs.current().p.Add(plotter.NewGrid())
			return 0
		},
		// Rendering happens at capture time; show exists so ported
		// snippets ending in plot.show() keep working.
		"show": func(L *lua.LState) int {
			return 0
		},
	}
	return L.SetFuncs(mod, funcs)
}

func checkXYs(L *lua.LState) plotter.XYs {
	xs := CheckFloats(L, 1)
	ys := CheckFloats(L, 2)
	if len(xs) != len(ys) {
		L.RaiseError("x and y have different lengths: %d and %d", len(xs), len(ys))
	}
	xys := make(plotter.XYs, len(xs))
	for i := range xs {
		xys[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return xys
}
