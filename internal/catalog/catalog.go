// Package catalog serves the static, data-only companions to script
// execution: the function reference and the canned sample snippet. Nothing
// here touches the validator or the executor.
package catalog

// Functions returns the available library surface grouped by module.
func Functions() map[string][]string {
	return map[string][]string{
		"numeric": {
			"num.linspace(start, stop, n)", "num.arange(start, stop, step)",
			"num.zeros(n)", "num.ones(n)", "num.fill(n, value)",
			"num.sum(xs)", "num.mean(xs)", "num.std(xs)", "num.variance(xs)",
			"num.median(xs)", "num.min(xs)", "num.max(xs)",
			"num.sin(xs)", "num.cos(xs)", "num.exp(xs)", "num.log(xs)",
			"num.sqrt(xs)", "num.abs(xs)", "num.pow(xs, k)",
			"num.cumsum(xs)", "num.scale(xs, k)", "num.shift(xs, c)",
			"num.dot(xs, ys)", "num.corr(xs, ys)", "num.cov(xs, ys)",
			"num.linreg(xs, ys)",
		},
		"numeric.random": {
			"num.random.seed(n)", "num.random.rand(n, lo, hi)",
			"num.random.randn(n, mu, sigma)", "num.random.choice(xs)",
		},
		"frame": {
			"frame.new({col = values, ...})",
			"f:head(n)", "f:tail(n)", "f:len()", "f:cols()", "f:col(name)",
			"f:sort(name, desc)", "f:describe()", "tostring(f)",
		},
		"plot": {
			"plt.figure()", "plt.line(xs, ys, name)", "plt.scatter(xs, ys, name)",
			"plt.bar(values, labels)", "plt.hist(values, bins)",
			"plt.title(s)", "plt.xlabel(s)", "plt.ylabel(s)",
			"plt.grid()", "plt.show()",
		},
		"builtin": {
			"print(...)", "ipairs(t)", "pairs(t)", "tostring(v)", "tonumber(v)",
			"require(name)", "error(msg)", "#t",
			"math.*", "string.*", "table.*",
		},
	}
}

// Sample is a canned snippet callers can run as-is.
type Sample struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

// SampleData returns example code for building test datasets and charts.
func SampleData() Sample {
	return Sample{
		Code: `-- Sample datasets you can use:

-- 1. Simple numeric data
x = num.linspace(0, 10, 100)
y = num.sin(x)

-- 2. Random data for scatter plots
num.random.seed(7)
a = num.random.randn(100)
b = num.random.randn(100)

-- 3. Sample frame with summary statistics
f = frame.new({
  u = num.random.randn(50),
  v = num.random.rand(50),
})
print(f:describe())

-- 4. Cumulative series
series = num.cumsum(num.random.randn(30))

-- Example plots:
-- plt.line(x, y, "sine")
-- plt.scatter(a, b)
-- plt.hist(series, 10)`,
		Description: "Sample code for creating test datasets and visualizations",
		Examples: []string{
			"Simple numeric data with a sine wave",
			"Random scatter plot data",
			"Frame with summary statistics",
			"Cumulative random series",
		},
	}
}
