package searchpath

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// CMakeCacheFile is the file name CMake writes into a build directory.
const CMakeCacheFile = "CMakeCache.txt"

// reCMakeCacheEntry matches KEY:TYPE=VALUE lines.
var reCMakeCacheEntry = regexp.MustCompile(`^([A-Za-z0-9_\-]+):([A-Z]+)\s*=\s*(.*)$`)

// rePackageDir matches the <Pkg>_DIR entries find_package() records.
var rePackageDir = regexp.MustCompile(`^[A-Za-z0-9_\-]+_DIR$`)

// PrefixesFromCMakeCache reads a CMakeCache.txt, or the one inside a build
// directory, and returns the install prefixes it refers to: the entries of
// CMAKE_PREFIX_PATH, the prefixes above every <Pkg>_DIR config directory, and
// the vcpkg installed tree of the target triplet. Each prefix is listed once.
func PrefixesFromCMakeCache(path string) ([]string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, CMakeCacheFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CMake cache")
	}
	defer f.Close()

	var prefixes []string
	add := func(p string) {
		p = strings.TrimRight(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if p != "" && !strings.HasSuffix(p, "-NOTFOUND") && !slices.Contains(prefixes, p) {
			prefixes = append(prefixes, p)
		}
	}

	var vcpkgInstalled, vcpkgTriplet string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		m := reCMakeCacheEntry.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, value := m[1], m[3]

		switch {
		case key == "CMAKE_PREFIX_PATH":
			for _, p := range strings.Split(value, ";") {
				add(p)
			}
		case key == "VCPKG_INSTALLED_DIR" || key == "_VCPKG_INSTALLED_DIR":
			vcpkgInstalled = value
		case key == "VCPKG_TARGET_TRIPLET":
			vcpkgTriplet = value
		case rePackageDir.MatchString(key):
			if prefix, ok := prefixOfConfigDir(value); ok {
				add(prefix)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read CMake cache")
	}

	if vcpkgInstalled != "" && vcpkgTriplet != "" {
		add(filepath.ToSlash(filepath.Join(vcpkgInstalled, vcpkgTriplet)))
	}
	return prefixes, nil
}

// prefixOfConfigDir maps a package config directory back to its install
// prefix: <prefix>/lib/cmake/<Pkg>, <prefix>/share/<pkg> or <prefix>/cmake.
func prefixOfConfigDir(dir string) (string, bool) {
	dir = filepath.ToSlash(dir)
	lower := strings.ToLower(dir)
	for _, marker := range []string{"/lib/cmake/", "/lib64/cmake/", "/share/"} {
		if i := strings.LastIndex(lower, marker); i > 0 {
			return dir[:i], true
		}
	}
	if strings.HasSuffix(lower, "/cmake") {
		return dir[:len(dir)-len("/cmake")], true
	}
	return "", false
}
