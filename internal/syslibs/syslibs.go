// Package syslibs decides whether a DLL name belongs to the operating system
// and therefore must never be deployed next to a binary.
//
// On Windows the decision is a live probe of the system directories. When
// cross-compiling (any other host) there is nothing to probe, so a built-in
// table of DLL names shipped with Windows is consulted instead.
package syslibs

import (
	"bufio"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
)

// Classifier reports whether a DLL is owned by the operating system.
type Classifier interface {
	IsSystemLibrary(name string) bool
}

// WindowsSystemDirs are probed, in order, by the live classifier.
var WindowsSystemDirs = []string{
	"C:/Windows/",
	"C:/Windows/system32/",
	"C:/Windows/System32/Wbem/",
	"C:/Windows/System32/WindowsPowerShell/v1.0/",
	"C:/Windows/System32/OpenSSH/",
}

// ProbeClassifier treats a DLL as a system library when a regular file with
// that name exists in one of Dirs.
type ProbeClassifier struct {
	Dirs []string
}

// IsSystemLibrary implements Classifier.
func (p *ProbeClassifier) IsSystemLibrary(name string) bool {
	for _, dir := range p.Dirs {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

//go:embed system_dlls.txt
var systemDLLTable string

// StaticClassifier looks names up in a fixed set. Lookups are case-insensitive.
type StaticClassifier struct {
	names map[string]struct{}
}

// NewStatic builds a StaticClassifier over names.
func NewStatic(names ...string) *StaticClassifier {
	s := &StaticClassifier{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[strings.ToLower(n)] = struct{}{}
	}
	return s
}

// Builtin returns a StaticClassifier over the embedded table of DLLs that
// ship with Windows.
func Builtin() *StaticClassifier {
	var names []string
	sc := bufio.NewScanner(strings.NewReader(systemDLLTable))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			names = append(names, line)
		}
	}
	return NewStatic(names...)
}

// IsSystemLibrary implements Classifier.
func (s *StaticClassifier) IsSystemLibrary(name string) bool {
	_, ok := s.names[strings.ToLower(name)]
	return ok
}

// Len is the number of names in the set.
func (s *StaticClassifier) Len() int { return len(s.names) }

// ForPlatform picks the live probe on windows and the built-in table elsewhere.
func ForPlatform(goos string) Classifier {
	if goos == "windows" {
		return &ProbeClassifier{Dirs: WindowsSystemDirs}
	}
	return Builtin()
}
