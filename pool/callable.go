package pool

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/jinzhu/copier"
)

// Args maps parameter names to argument values for one task.
type Args map[string]any

// Body is the implementation of a Function. It receives its arguments by name.
type Body func(ctx context.Context, args Args) (any, error)

// Function is a named callable with an explicit parameter list.
// Binding is keyword-only: a task's Args must contain exactly the names in
// Params, no more and no fewer.
type Function struct {
	Name   string
	Params []string
	Body   Body
}

// NewFunction declares a Function taking the given parameter names.
func NewFunction(name string, body Body, params ...string) Function {
	return Function{Name: name, Params: params, Body: body}
}

// MethodSet is the capability table of a Target: method name to Function,
// with each Function bound to the receiver that produced the table.
type MethodSet map[string]Function

// Target is an object whose methods can be dispatched by name.
//
// Targets are copied on transfer: every task receives its own clone and looks
// its method up on that clone. Mutations a task makes to the target are not
// visible to the submitter or to sibling tasks.
type Target interface {
	Methods() MethodSet
}

// Cloner lets a Target control how it is copied for each task. Targets that
// do not implement it are deep-copied through their exported fields, and
// unexported fields are copied by value. A target without Cloner whose
// unexported fields hold maps, slices, pointers, channels, funcs or
// interfaces cannot be copied safely and fails to resolve.
type Cloner interface {
	Clone() Target
}

type callableKind int

const (
	kindNone callableKind = iota
	kindFunc
	kindMethod
)

// Callable is either a direct function or a method name bound to a target.
// The zero Callable is neither and fails resolution.
type Callable struct {
	kind   callableKind
	fn     Function
	method string
	target Target
}

// Func wraps a direct function.
func Func(fn Function) Callable {
	return Callable{kind: kindFunc, fn: fn}
}

// Method names a method to be looked up on target when the task runs.
func Method(name string, target Target) Callable {
	return Callable{kind: kindMethod, method: name, target: target}
}

// String describes the callable for progress output.
func (c Callable) String() string {
	switch c.kind {
	case kindFunc:
		if c.fn.Name != "" {
			return c.fn.Name
		}
		return "function"
	case kindMethod:
		return fmt.Sprintf("%s of %T", c.method, c.target)
	default:
		return "<none>"
	}
}

// validate checks the callable's shape without touching the target.
func (c Callable) validate() error {
	switch c.kind {
	case kindFunc:
		if c.fn.Body == nil {
			return resolutionErrorf("function %q has no body", c.fn.Name)
		}
	case kindMethod:
		if c.method == "" {
			return resolutionErrorf("method call without a method name")
		}
		if isNilTarget(c.target) {
			return resolutionErrorf("method %q has no target", c.method)
		}
	default:
		return resolutionErrorf("descriptor has no callable")
	}
	return nil
}

// Descriptor is one unit of work: a callable and its named arguments.
type Descriptor struct {
	Call Callable
	Args Args
}

// Validate reports structural problems (missing callable, method without
// target) up front. Method lookup and argument binding are only checked when
// the task runs.
func (d Descriptor) Validate() error {
	return d.Call.validate()
}

// Bound is a resolved task, ready to run.
type Bound func(ctx context.Context) (any, error)

// Resolve turns a descriptor into a call. For methods this clones the target
// and looks the method up on the clone, so it is meant to run inside the
// worker that executes the task. The descriptor is not modified.
func Resolve(d Descriptor) (Bound, error) {
	if err := d.Call.validate(); err != nil {
		return nil, err
	}

	fn := d.Call.fn
	if d.Call.kind == kindMethod {
		target, err := cloneTarget(d.Call.target)
		if err != nil {
			return nil, err
		}
		m, ok := target.Methods()[d.Call.method]
		if !ok || m.Body == nil {
			return nil, resolutionErrorf("%T has no method %q", d.Call.target, d.Call.method)
		}
		if m.Name == "" {
			m.Name = d.Call.method
		}
		fn = m
	}

	args, err := bindArgs(fn, d.Args)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (any, error) {
		return fn.Body(ctx, args)
	}, nil
}

// bindArgs checks that args names exactly match fn's parameters and returns a
// private copy of the mapping.
func bindArgs(fn Function, args Args) (Args, error) {
	var missing, extra []string
	for _, p := range fn.Params {
		if _, ok := args[p]; !ok {
			missing = append(missing, p)
		}
	}
	for name := range args {
		if !slices.Contains(fn.Params, name) {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		slices.Sort(extra)
		return nil, resolutionErrorf("%s: missing [%s], unexpected [%s]",
			fn.Name, strings.Join(missing, ", "), strings.Join(extra, ", "))
	}

	if args == nil {
		return Args{}, nil
	}
	return maps.Clone(args), nil
}

// cloneTarget produces the per-task copy of a target.
func cloneTarget(t Target) (Target, error) {
	if c, ok := t.(Cloner); ok {
		clone := c.Clone()
		if isNilTarget(clone) {
			return nil, resolutionErrorf("%T.Clone returned nil", t)
		}
		return clone, nil
	}

	src := reflect.ValueOf(t)
	var dst reflect.Value
	switch {
	case src.Kind() == reflect.Pointer && src.Elem().Kind() == reflect.Struct:
		dst = reflect.New(src.Elem().Type())
	case src.Kind() == reflect.Struct:
		dst = reflect.New(src.Type())
	default:
		// maps, funcs and other reference kinds cannot be copied generically
		return nil, resolutionErrorf("cannot copy target of type %T, implement Cloner", t)
	}

	if path := sharedField(dst.Elem().Type(), dst.Elem().Type().Name(), map[reflect.Type]bool{}); path != "" {
		return nil, resolutionErrorf("cannot copy target %T: unexported field %s shares state, implement Cloner", t, path)
	}

	if err := copier.CopyWithOption(dst.Interface(), t, copier.Option{DeepCopy: true}); err != nil {
		return nil, resolutionErrorf("copy target %T: %v", t, err)
	}

	if src.Kind() == reflect.Pointer {
		return dst.Interface().(Target), nil
	}
	return dst.Elem().Interface().(Target), nil
}

// sharedField returns the path of the first unexported field reachable from
// t that would be copied by reference, or "" if there is none. Exported
// fields are followed because their contents are deep-copied in turn.
func sharedField(t reflect.Type, path string, seen map[reflect.Type]bool) string {
	if seen[t] {
		return ""
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			fp := path + "." + f.Name
			if !f.IsExported() {
				if holdsReference(f.Type, map[reflect.Type]bool{}) {
					return fp
				}
				continue
			}
			if p := sharedField(f.Type, fp, seen); p != "" {
				return p
			}
		}
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return sharedField(t.Elem(), path, seen)
	case reflect.Map:
		if p := sharedField(t.Key(), path, seen); p != "" {
			return p
		}
		return sharedField(t.Elem(), path, seen)
	}
	return ""
}

// holdsReference reports whether a value of type t aliases memory when
// assigned.
func holdsReference(t reflect.Type, seen map[reflect.Type]bool) bool {
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return holdsReference(t.Elem(), seen)
	case reflect.Struct:
		if seen[t] {
			return false
		}
		seen[t] = true
		for i := range t.NumField() {
			if holdsReference(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

func isNilTarget(t Target) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
