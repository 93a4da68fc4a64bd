package typecheck

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/modmap/modmap/typeexpr"
)

// Param declares one positional argument of a guarded callable.
type Param struct {
	Name string
	Type typeexpr.Expr
}

// FuncSpec declares the contract of a guarded callable. The zero Result
// admits any return value.
type FuncSpec struct {
	Params []Param
	Result typeexpr.Expr
}

// Func wraps an implementation behind a FuncSpec. Call validates arguments
// before invoking the implementation and validates the result after, without
// coercing either. Beyond those checks the wrapper is transparent: a
// conforming call returns exactly what the implementation returned, and
// implementation errors pass through unwrapped.
type Func struct {
	spec FuncSpec
	impl func(args ...any) (any, error)
}

// NewFunc binds impl to spec.
func NewFunc(spec FuncSpec, impl func(args ...any) (any, error)) (*Func, error) {
	if impl == nil {
		return nil, errors.New("typecheck: NewFunc requires an implementation")
	}
	params := make([]Param, len(spec.Params))
	copy(params, spec.Params)
	spec.Params = params
	return &Func{spec: spec, impl: impl}, nil
}

// Spec returns a copy of the contract.
func (f *Func) Spec() FuncSpec {
	spec := f.spec
	spec.Params = make([]Param, len(f.spec.Params))
	copy(spec.Params, f.spec.Params)
	return spec
}

// Call invokes the implementation with args. A non-conforming argument fails
// before the implementation runs; a non-conforming result fails after, and
// the offending value is not returned.
func (f *Func) Call(args ...any) (any, error) {
	if len(args) != len(f.spec.Params) {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d",
			ErrTypeMismatch, len(f.spec.Params), len(args))
	}
	for i, p := range f.spec.Params {
		if err := Check(args[i], p.Type); err != nil {
			var tm *TypeMismatchError
			if errors.As(err, &tm) {
				tm.Parameter = paramLabel(p, i)
			}
			return nil, err
		}
	}
	out, err := f.impl(args...)
	if err != nil {
		return nil, err
	}
	if err := Check(out, f.spec.Result); err != nil {
		var tm *TypeMismatchError
		if errors.As(err, &tm) {
			tm.IsReturn = true
		}
		return nil, err
	}
	return out, nil
}

func paramLabel(p Param, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return strconv.Itoa(i)
}
