package parse

import (
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
)

// isLeaf reports types that may sit inside a container: primitives, string
// values and announced custom types.
func isLeaf(rt *model.RustType) bool {
	if rt.IsPrimitive() || rt.IsStringLike() {
		return true
	}
	_, ok := rt.Custom()
	return ok
}

func nestedErr(rt *model.RustType) error {
	return errors.UnsupportedShape(rt.Span, "nested generic container %s is not supported", rt)
}

// checkField validates a struct field type.
func checkField(rt *model.RustType) error {
	if rt.IsRefMut() {
		return errors.UnsupportedShape(rt.Span, "mutable reference field %s is not supported", rt)
	}
	if isLeaf(rt) {
		return nil
	}
	c, ok := rt.Composite()
	if !ok {
		return errors.UnsupportedShape(rt.Span, "field type %s is not supported", rt)
	}
	switch c.Kind {
	case model.CompositeVec, model.CompositeOption:
		if !isLeaf(c.Inner) {
			return nestedErr(rt)
		}
		return ownedElems(rt, c.Inner)
	case model.CompositeHashMap:
		if err := checkHashMap(rt, c); err != nil {
			return err
		}
		return ownedElems(rt, c.Inner2)
	}
	return errors.UnsupportedShape(rt.Span, "generic type %s is not supported", rt)
}

// ownedElems rejects borrowed elements in containers reached by reference.
func ownedElems(rt, elem *model.RustType) error {
	if elem.IsRef() {
		return errors.UnsupportedShape(elem.Span, "container %s borrowed from a field must own its elements", rt)
	}
	return nil
}

// checkHashMap allows owned primitive or String keys and leaf or Vec<leaf>
// values.
// Collection values are handed out as views.
func checkHashMap(rt *model.RustType, c model.Composite) error {
	key := c.Inner
	if kind, ok := key.ValueKind(); ok && kind == model.ValueString && !key.IsRef() {
		return checkMapValue(rt, c)
	}
	if !key.IsPrimitive() || key.IsRef() {
		return errors.UnsupportedShape(key.Span, "hash map key %s must be an owned primitive or String", key)
	}
	return checkMapValue(rt, c)
}

func checkMapValue(rt *model.RustType, c model.Composite) error {
	if isLeaf(c.Inner2) {
		return nil
	}
	if c.Inner2.IsVec() && isLeaf(c.Inner2.Inner()) {
		return ownedElems(c.Inner2, c.Inner2.Inner())
	}
	return nestedErr(rt)
}

// checkArg validates an exported function argument.
func checkArg(rt *model.RustType) error {
	switch {
	case rt.IsPrimitive():
		if rt.IsRef() {
			return errors.UnsupportedShape(rt.Span, "pass %s by value", rt.Owned())
		}
		return nil
	case rt.IsStringLike():
		if kind, _ := rt.ValueKind(); kind == model.ValueStr && !rt.IsRef() {
			return errors.UnsupportedShape(rt.Span, "unsized str argument")
		}
		return nil
	case rt.IsEnum():
		return nil
	case rt.IsStruct():
		if !rt.IsRef() {
			return errors.UnsupportedShape(rt.Span, "struct argument %s must be passed by reference", rt)
		}
		return nil
	}
	if info, ok := rt.Custom(); ok && info.Category == model.CategoryPrim {
		return nil
	}
	return errors.UnsupportedShape(rt.Span, "unsupported argument type %s", rt)
}

// checkReturn validates an exported function return type.
func checkReturn(rt *model.RustType) error {
	if rt.IsRefMut() {
		return errors.UnsupportedShape(rt.Span, "returning a mutable reference %s is not supported", rt)
	}
	if rt.IsUnit() || isLeaf(rt) {
		return nil
	}
	c, ok := rt.Composite()
	if !ok {
		return errors.UnsupportedShape(rt.Span, "return type %s is not supported", rt)
	}
	switch c.Kind {
	case model.CompositeVec:
		if !isLeaf(c.Inner) {
			return nestedErr(rt)
		}
		if rt.IsRef() {
			return ownedElems(rt, c.Inner)
		}
		if c.Inner.IsStruct() && !c.Inner.IsRef() {
			return errors.UnsupportedShape(c.Inner.Span, "returned vector must borrow its struct elements: Vec<&%s>", c.Inner)
		}
		return nil
	case model.CompositeOption:
		in := c.Inner
		switch {
		case in.IsStruct():
		case in.IsRef() && in.IsPrimitive():
		default:
			return errors.UnsupportedShape(rt.Span, "Option return must wrap a struct or a primitive reference, found %s", rt)
		}
		return nil
	case model.CompositeHashMap:
		if err := checkHashMap(rt, c); err != nil {
			return err
		}
		return ownedElems(rt, c.Inner2)
	}
	return errors.UnsupportedShape(rt.Span, "generic return type %s is not supported", rt)
}

// checkPayload validates a message variant field. Integers wider than the
// host int are rejected instead of truncated.
func checkPayload(rt *model.RustType) error {
	if rt.IsRef() {
		return errors.UnsupportedShape(rt.Span, "message payload %s must be owned", rt)
	}
	if p, ok := rt.Primitive(); ok {
		if p == model.U64 || p == model.Usize {
			return errors.UnsupportedShape(rt.Span, "message payload %s does not fit the host int (signed 64 bit); use i64", p)
		}
		return nil
	}
	if kind, ok := rt.ValueKind(); ok && kind == model.ValueString {
		return nil
	}
	if rt.IsEnum() {
		return nil
	}
	return errors.UnsupportedShape(rt.Span, "unsupported argument type %s in message", rt)
}
