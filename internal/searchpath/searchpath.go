// Package searchpath assembles the ordered directory lists the locator
// searches for DLLs.
//
// Both lists are composed the same way:
//  1. the explicit directories, verbatim and in the given order
//  2. <prefix>/bin for every CMake prefix path, if it is a directory
//  3. on Windows, unless suppressed, every directory listed in PATH
//
// Only the derived entries of steps 2 and 3 are checked for existence.
package searchpath

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// Builder holds the platform facts the composition depends on.
type Builder struct {
	GOOS        string
	PathListSep string
	Getenv      func(string) string
}

// New returns a Builder for the running process.
func New() *Builder {
	return &Builder{
		GOOS:        runtime.GOOS,
		PathListSep: string(os.PathListSeparator),
		Getenv:      os.Getenv,
	}
}

// Shallow returns the directories searched non-recursively.
func (b *Builder) Shallow(cfg *model.Config) []string {
	return b.compose(cfg, cfg.ShallowSearchDirs)
}

// Deep returns the directories searched recursively.
func (b *Builder) Deep(cfg *model.Config) []string {
	return b.compose(cfg, cfg.DeepSearchDirs)
}

func (b *Builder) compose(cfg *model.Config, explicit []string) []string {
	dirs := make([]string, 0, len(explicit))
	dirs = append(dirs, explicit...)
	dirs = append(dirs, prefixDirs(cfg.CMakePrefixPaths)...)
	if b.GOOS == "windows" && !cfg.SkipEnvPath {
		dirs = append(dirs, b.envPathDirs()...)
	}
	return dirs
}

// prefixDirs expands CMake prefix paths. An entry may itself be a
// ';'-separated list, as CMAKE_PREFIX_PATH usually is.
func prefixDirs(prefixPaths []string) []string {
	var dirs []string
	for _, entry := range prefixPaths {
		for _, prefix := range strings.Split(entry, ";") {
			if prefix == "" {
				continue
			}
			if bin := prefix + "/bin"; isDir(bin) {
				dirs = append(dirs, bin)
			}
		}
	}
	return dirs
}

func (b *Builder) envPathDirs() []string {
	var dirs []string
	for _, dir := range strings.Split(b.Getenv("PATH"), b.PathListSep) {
		if dir != "" && isDir(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && info.IsDir()
}
