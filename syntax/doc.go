// Package syntax parses the subset of Rust the generator reads: attributes,
// structs, enums, impl blocks, free functions and type expressions.
//
// Function bodies and unrelated items are skipped by delimiter matching, so
// arbitrary crate sources can be fed in as long as they tokenize.
package syntax
