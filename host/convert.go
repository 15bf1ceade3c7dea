package host

import (
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/model"
)

// value converts raw, the result of an entry returning rt, into its Dart
// value. Containers and boxed structs handed out by value are disposed
// after conversion.
func (r *Renderer) value(rt *model.RustType, raw string) (string, error) {
	if rt == nil || rt.IsUnit() {
		return "", nil
	}
	if p, ok := rt.Primitive(); ok {
		if p == model.Bool {
			return raw + " != 0", nil
		}
		return raw, nil
	}
	if rt.IsStringLike() {
		return raw + ".takeDartString()", nil
	}
	if info, ok := rt.Custom(); ok {
		switch info.Category {
		case model.CategoryEnum:
			return info.Key + ".values[" + raw + "]", nil
		case model.CategoryPrim:
			return raw, nil
		}
		r.rawClass(info.Key)
		if rt.IsRef() {
			return raw + ".toDart()", nil
		}
		return "_ridTake(" + raw + ", (p) => p.toDart(), " + r.freeLookup(info.Key) + ")", nil
	}

	c, ok := rt.Composite()
	if !ok {
		return "", errors.UnsupportedShape(rt.Span, "return type %s has no host form", rt)
	}
	switch c.Kind {
	case model.CompositeVec, model.CompositeHashMap:
		if rt.IsRef() {
			if c.Kind == model.CompositeVec {
				return raw + ".toDart().toList()", nil
			}
			return raw + ".toDart()", nil
		}
		return raw + ".take()", nil
	case model.CompositeOption:
		return r.option(rt, c.Inner, raw), nil
	}
	return "", errors.UnsupportedShape(rt.Span, "return type %s has no host form", rt)
}

func (r *Renderer) option(rt, in *model.RustType, raw string) string {
	switch {
	case in.IsEnum():
		return "_ridEnumOrNull(" + raw + ", " + in.Key() + ".values)"
	case in.IsStringLike():
		return "_ridNullable(" + raw + ", (p) => p.takeDartString())"
	case in.IsStruct():
		r.rawClass(in.Key())
		if !in.IsRef() && !rt.IsRef() {
			return "_ridNullable(" + raw + ", (p) => _ridTake(p, (q) => q.toDart(), " + r.freeLookup(in.Key()) + "))"
		}
		return "_ridNullable(" + raw + ", (p) => p.toDart())"
	case in.IsBool():
		return "_ridNullable(" + raw + ", (p) => p.value != 0)"
	}
	return "_ridNullable(" + raw + ", (p) => p.value)"
}

// returnType is the Dart type of a converted entry result.
func returnType(rt *model.RustType) string {
	if rt == nil || rt.IsUnit() {
		return "void"
	}
	return ffi.DartType(rt)
}

// argType is the Dart parameter type of an entry argument.
func (r *Renderer) argType(rt *model.RustType) string {
	if rt.IsStruct() {
		r.rawClass(rt.Key())
		return "Pointer<" + ffi.RawClass(rt.Key()) + ">"
	}
	return ffi.DartType(rt)
}
