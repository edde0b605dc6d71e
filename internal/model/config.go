// Package model defines the internal data structures shared by the deployment
// engine, its collaborators and the report writers.
package model

import (
	"path/filepath"
	"slices"
)

// Inspector backends.
const (
	InspectorObjdump = "objdump"
	InspectorNative  = "native"
)

// Report formats.
const (
	ReportJSON      = "json"
	ReportYAML      = "yaml"
	ReportTree      = "tree"
	ReportCycloneDX = "cyclonedx"
)

// Objdump location selectors. Any other value is an explicit path.
const (
	ObjdumpAuto    = "[auto]"
	ObjdumpSystem  = "[system]"
	ObjdumpBuiltin = "[builtin]"
)

// Config is the deployment configuration for one invocation. It is built once
// by the front end and treated as read-only afterwards.
type Config struct {
	TargetBinary string `toml:"-"` // absolute path of the root binary

	SkipEnvPath  bool `toml:"skip_env_path"`  // do not search the PATH directories (Windows only)
	CopyVCRedist bool `toml:"copy_vc_redist"` // deploy api-ms-win-* runtime DLLs too
	Verbose      bool `toml:"verbose"`

	ShallowSearchDirs []string `toml:"shallow_search_dirs"`
	NoShallowSearch   bool     `toml:"no_shallow_search"`
	DeepSearchDirs    []string `toml:"deep_search_dirs"`
	NoDeepSearch      bool     `toml:"no_deep_search"`

	CMakePrefixPaths []string `toml:"cmake_prefix_path"` // each expands to <prefix>/bin
	CMakeCache       string   `toml:"cmake_cache"`       // CMakeCache.txt or build dir contributing more prefixes
	Ignore           []string `toml:"ignore"`            // DLL names that are never deployed

	ObjdumpFile  string `toml:"objdump_file" validate:"required"`          // [auto], [system], [builtin] or a path
	Inspector    string `toml:"inspector" validate:"oneof=objdump native"` // objdump or native
	AllowMissing bool   `toml:"allow_missing"`

	ReportPath   string `toml:"report"`
	ReportFormat string `toml:"report_format" validate:"oneof=json yaml tree cyclonedx"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		ObjdumpFile:  ObjdumpAuto,
		Inspector:    InspectorObjdump,
		ReportFormat: ReportJSON,
	}
}

// TargetDir is the directory DLLs are deployed into: the root binary's parent.
func (c *Config) TargetDir() string {
	return filepath.Dir(c.TargetBinary)
}

// IsIgnored reports whether name is listed in the ignore set.
func (c *Config) IsIgnored(name string) bool {
	return slices.Contains(c.Ignore, name)
}
