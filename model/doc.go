// Package model holds the type lattice the generator reasons about and the
// parsed entities built from it.
//
// A RustType is a TypeKind (Prim, Value, Composite, Unit or Unknown) plus a
// Reference layer. Resolve maps a syntax.TypeExpr onto the lattice using a
// TypeInfoMap of category hints; names it cannot place become Unknown so the
// caller can decide how to diagnose them. Inside impl blocks callers resolve
// with TypeInfoMap.WithSelf and then rewrite Self to the owner:
//
//	rt := model.Resolve(expr, infos.WithSelf(owner)).SelfUnaliased(owner)
//
// Key returns the identifier used in generated artifact names, e.g.
// "vec_Todo" for Vec<Todo> and "hash_map_String_u32" for HashMap<String, u32>.
package model
