// Package locator finds a DLL on disk by name in an ordered list of
// directories, accepting the first candidate a validator approves.
package locator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Validator decides whether a candidate file may be deployed. It returns nil
// to accept, a *Rejection to keep searching, or any other error to abort the
// search altogether.
type Validator func(path string) error

// Rejection explains why a candidate was skipped.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Reject builds a Rejection with a formatted reason.
func Reject(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// Locator searches directories for DLLs.
type Locator struct {
	logger zerolog.Logger
}

// New returns a Locator logging rejections and walk errors at debug level.
func New(logger zerolog.Logger) *Locator {
	return &Locator{logger: logger}
}

// FindShallow checks dir/name for each dir in order.
func (l *Locator) FindShallow(name string, dirs []string, validate Validator) (string, bool, error) {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		ok, err := l.accept(candidate, validate)
		if err != nil {
			return "", false, err
		}
		if ok {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

// FindDeep walks each dir in order, depth-first, and checks <entry>/name for
// every entry visited, the dir itself included. Unreadable subtrees are
// logged and skipped.
func (l *Locator) FindDeep(name string, dirs []string, validate Validator) (string, bool, error) {
	for _, dir := range dirs {
		var found string
		var fatal error

		_ = filepath.WalkDir(dir, func(path string, _ fs.DirEntry, err error) error {
			if err != nil {
				l.logger.Debug().Err(err).Str("path", path).Msg("Failed to search")
				return nil
			}
			candidate := filepath.Join(path, name)
			ok, verr := l.accept(candidate, validate)
			if verr != nil {
				fatal = verr
				return fs.SkipAll
			}
			if ok {
				found = candidate
				return fs.SkipAll
			}
			return nil
		})

		if fatal != nil {
			return "", false, fatal
		}
		if found != "" {
			return found, true, nil
		}
	}
	return "", false, nil
}

// accept reports whether candidate is a regular file approved by validate.
func (l *Locator) accept(candidate string, validate Validator) (bool, error) {
	info, err := os.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() {
		return false, nil
	}
	if validate == nil {
		return true, nil
	}

	err = validate(candidate)
	if err == nil {
		return true, nil
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		l.logger.Debug().Str("candidate", candidate).Msgf("Skipped because %s", rej.Reason)
		return false, nil
	}
	return false, err
}
