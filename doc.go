// Package ridgen generates the bridge between a Rust crate and a Dart host.
//
// Sources carrying rid attributes are parsed into a model, then rendered
// twice: once as C-ABI shims compiled into the crate, once as Dart code
// that binds them through dart:ffi. Both sides share one generation
// context so helpers used by several items are emitted once.
//
//	ridgen/
//	├── syntax/      Rust item parser and tokenizer
//	├── attr/        rid attribute parsing
//	├── model/       resolved Rust types and parsed entities
//	├── parse/       crate-level model construction and validation
//	├── genstate/    shared emission ledger
//	├── ffi/         naming and type mapping across the boundary
//	├── access/      Vec and HashMap accessor generation
//	├── native/      Rust shim renderer
//	├── host/        Dart renderer
//	├── reply/       reply and log frame encoding
//	├── store/       store lock and message dispatch runtime
//	├── channel/     request correlation and reply fan-out
//	├── resource/    ownership ledger for values crossing the boundary
//	├── witmap/      WIT projection of the model
//	├── graph/       artifact dependency graph
//	├── config/      Cargo.toml settings
//	└── errors/      structured errors and diagnostics
//
// # Usage
//
//	out, err := ridgen.Generate(ctx, []ridgen.Source{{Name: "src/lib.rs", Data: src}}, ridgen.Options{
//	    LibPath:    "libtodo.so",
//	    MsgTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("src/generated/rid.rs", []byte(out.Rust), 0o644)
//	os.WriteFile("lib/generated/rid_api.dart", []byte(out.Dart), 0o644)
//
// Items that cannot be bridged are reported in Output.Diagnostics and left
// out of both units; the rest of the crate is still generated. Set
// Options.Strict to turn any diagnostic into an error.
package ridgen
