package ffi

import (
	"github.com/wippyai/ridgen/model"
)

// Fixed entry names.
const (
	CStringFree      = "rid_cstring_free"
	StoreLock        = "rid_store_lock"
	StoreUnlock      = "rid_store_unlock"
	CreateStore      = "create_store"
	StoreFree        = "rid_store_free"
	InitReplyIsolate = "rid_init_reply_isolate"
)

// ExportName is rid_export_{Owner_}{fn}, or rid_export_{alias} when the
// function is exported under an alias.
func ExportName(owner string, f *model.ParsedFunction) string {
	if f.Alias != "" {
		return "rid_export_" + f.Alias
	}
	if owner != "" {
		return "rid_export_" + owner + "_" + f.Ident
	}
	return "rid_export_" + f.Ident
}

// FieldAccessor names the native getter of a struct field.
func FieldAccessor(owner, field string) string {
	return "rid_" + model.Snake(owner) + "_" + field
}

// DebugFn names the Debug formatter of a type.
func DebugFn(owner string, pretty bool) string {
	if pretty {
		return "rid_" + model.Snake(owner) + "_debug_pretty"
	}
	return "rid_" + model.Snake(owner) + "_debug"
}

// DisplayFn names the Display formatter of a type.
func DisplayFn(owner string) string {
	return "rid_" + model.Snake(owner) + "_display"
}

// MessageFn names the dispatcher of a message variant.
func MessageFn(variant string) string {
	return "rid_msg_" + variant
}

// FreeFn names the free entry of a boxed struct or container key.
func FreeFn(key string) string {
	return "rid_free_" + key
}
