// Package config reads generator settings from a crate's Cargo.toml.
//
// The library name comes from [package]; everything else from an optional
// [package.metadata.rid] table:
//
//	[package.metadata.rid]
//	lib_name = "todo_core"
//	msg_timeout_ms = 5000
//	dart_out = "lib/generated/rid_api.dart"
//	rust_out = "src/generated/rid.rs"
//	ffigen_binding = "lib/generated/ffigen_binding.dart"
//	sources = ["src/lib.rs", "src/store.rs"]
//	infer_types = true
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/ridgen/errors"
)

// ManifestName is the file Load reads.
const ManifestName = "Cargo.toml"

// Defaults for settings absent from the manifest.
const (
	DefaultDartOut = "lib/generated/rid_api.dart"
	DefaultRustOut = "src/generated/rid.rs"
	DefaultSource  = "src/lib.rs"
)

type (
	manifest struct {
		Package manifestPackage `toml:"package"`
	}

	manifestPackage struct {
		Name     string   `toml:"name"`
		Version  string   `toml:"version"`
		Metadata metadata `toml:"metadata"`
	}

	metadata struct {
		Rid rid `toml:"rid"`
	}

	rid struct {
		LibName       string   `toml:"lib_name"`
		MsgTimeoutMs  int64    `toml:"msg_timeout_ms"`
		DartOut       string   `toml:"dart_out"`
		RustOut       string   `toml:"rust_out"`
		FfigenBinding string   `toml:"ffigen_binding"`
		Sources       []string `toml:"sources"`
		InferTypes    bool     `toml:"infer_types"`
	}
)

// Config is the resolved generator configuration of one crate. Paths are
// relative to Dir.
type Config struct {
	Dir           string
	Name          string
	Version       string
	LibName       string
	MsgTimeout    time.Duration
	DartOut       string
	RustOut       string
	FfigenBinding string
	Sources       []string
	InferTypes    bool
	// Unknown lists [package.metadata.rid] keys that were not recognised.
	Unknown []string
}

// LibPath is the shared library file the host opens: lib{name}.so.
func (c *Config) LibPath() string {
	return "lib" + c.LibName + ".so"
}

// Load reads dir/Cargo.toml.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
				Path(path).
				Cause(err).
				Detail("no %s in %s", ManifestName, dir).
				Build()
		}
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "read "+path)
	}
	return Decode(dir, string(data))
}

// Decode parses manifest text belonging to dir.
func Decode(dir, data string) (*Config, error) {
	var m manifest
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode "+ManifestName)
	}
	if m.Package.Name == "" {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("package", "name").
			Detail("%s has no package name", ManifestName).
			Build()
	}
	r := m.Package.Metadata.Rid
	if r.MsgTimeoutMs < 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("package", "metadata", "rid", "msg_timeout_ms").
			Value(r.MsgTimeoutMs).
			Detail("msg_timeout_ms must not be negative").
			Build()
	}

	c := &Config{
		Dir:           dir,
		Name:          m.Package.Name,
		Version:       m.Package.Version,
		LibName:       strings.ReplaceAll(m.Package.Name, "-", "_"),
		MsgTimeout:    time.Duration(r.MsgTimeoutMs) * time.Millisecond,
		DartOut:       or(r.DartOut, DefaultDartOut),
		RustOut:       or(r.RustOut, DefaultRustOut),
		FfigenBinding: r.FfigenBinding,
		Sources:       r.Sources,
		InferTypes:    r.InferTypes,
	}
	if r.LibName != "" {
		c.LibName = r.LibName
	}
	if len(c.Sources) == 0 {
		c.Sources = []string{DefaultSource}
	}

	for _, k := range md.Undecoded() {
		if len(k) > 3 && k[0] == "package" && k[1] == "metadata" && k[2] == "rid" {
			c.Unknown = append(c.Unknown, k.String())
		}
	}
	if len(c.Unknown) > 0 {
		Logger().Warn("unknown rid settings", zap.Strings("keys", c.Unknown))
	}
	Logger().Debug("loaded config", zap.String("crate", c.Name), zap.String("lib", c.LibPath()))
	return c, nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
