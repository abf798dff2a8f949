// Package transform applies a per-variable JavaScript expression to every
// element of a loaded array, e.g. `value < 0 ? 0 : value` or `value / 10`.
//
// The expression sees `value` (the element), `time` (the step as
// yyyyMMddHHmm) and `variable` (the variable id). NaN elements are left
// untouched.
package transform

import (
	"fmt"
	"math"

	"github.com/dop251/goja"
	"github.com/vk/forcinggate/internal/failure"
	"github.com/vk/forcinggate/internal/loader"
)

// Expr is a compiled transform. It is not safe for concurrent use.
type Expr struct {
	src string
	vm  *goja.Runtime
	fn  goja.Callable
}

// Compile prepares src. An empty src yields a nil Expr, which Apply treats
// as the identity.
func Compile(src string) (*Expr, error) {
	if src == "" {
		return nil, nil
	}

	vm := goja.New()
	wrapped := "(function(value, time, variable) {\nreturn (" + src + ");\n})"
	v, err := vm.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("compile transform %q: %w", src, err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("compile transform %q: not a function", src)
	}
	return &Expr{src: src, vm: vm, fn: fn}, nil
}

// String returns the source expression.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.src
}

// Apply rewrites rec.Data in place. On error rec is left unchanged.
func (e *Expr) Apply(rec *loader.Record, variable string) error {
	if e == nil {
		return nil
	}

	stamp := e.vm.ToValue(rec.Time.UTC().Format("200601021504"))
	name := e.vm.ToValue(variable)
	out := make([]float64, len(rec.Data.Elements))

	for i, v := range rec.Data.Elements {
		if math.IsNaN(v) {
			out[i] = v
			continue
		}
		res, err := e.fn(goja.Undefined(), e.vm.ToValue(v), stamp, name)
		if err != nil {
			return failure.Loadf("transform %q on %s at element %d: %v", e.src, variable, i, err)
		}
		if goja.IsUndefined(res) || goja.IsNull(res) {
			return failure.Loadf("transform %q on %s returned no value", e.src, variable)
		}
		out[i] = res.ToFloat()
	}

	copy(rec.Data.Elements, out)
	rec.Attrs = withTransform(rec.Attrs, e.src)
	return nil
}

func withTransform(attrs map[string]any, src string) map[string]any {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	attrs["transform"] = src
	return attrs
}
