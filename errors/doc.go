// Package errors provides structured error types for ridgen.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the item being emitted, the span of the offending token,
// and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAttribute, errors.KindAttributeShape).
//		At(span).
//		Item("Store").
//		Detail("types must be a brace-delimited set of Ident: Category pairs").
//		Build()
//
// Or use convenience constructors for the diagnostic taxonomy:
//
//	err := errors.TypeUnknown(span, "Todo")
//	err := errors.ReplyShape(span, "Added")
//
// Emission-time errors abort a single item; Diagnostics collects them so the
// rest of the translation unit can still be generated.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
