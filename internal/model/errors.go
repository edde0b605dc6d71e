package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind classifies every fatal condition of an invocation. Each kind maps
// to its own process exit status.
type ErrorKind int

const (
	ToolInvocationFailure ErrorKind = iota + 1
	SystemToolNotFound
	BundledToolNotFound
	ExplicitToolNotFound
	TargetNotAFile
	UnresolvedDependency
	CopyFailure
	ParseFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ToolInvocationFailure:
		return "tool invocation failure"
	case SystemToolNotFound:
		return "system objdump not found"
	case BundledToolNotFound:
		return "bundled objdump not found"
	case ExplicitToolNotFound:
		return "objdump not found"
	case TargetNotAFile:
		return "target is not a file"
	case UnresolvedDependency:
		return "unresolved dependency"
	case CopyFailure:
		return "copy failure"
	case ParseFailure:
		return "parse failure"
	default:
		return "error"
	}
}

// ExitCode is the process exit status for the kind.
func (k ErrorKind) ExitCode() int {
	if k < ToolInvocationFailure || k > ParseFailure {
		return 1
	}
	return int(k)
}

// DeployError is the error type returned by every engine component for a
// condition that aborts the invocation.
type DeployError struct {
	Kind       ErrorKind
	Path       string // binary, tool or file the error is about
	Dependency string // DLL name, when one is involved
	Detail     string // captured tool stderr or unparsable output
	Err        error
}

func (e *DeployError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Dependency != "" {
		fmt.Fprintf(&b, ": %q", e.Dependency)
		if e.Path != "" {
			fmt.Fprintf(&b, " required by %q", e.Path)
		}
	} else if e.Path != "" {
		fmt.Fprintf(&b, ": %q", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Detail != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(e.Detail, "\n"))
	}
	return b.String()
}

func (e *DeployError) Unwrap() error { return e.Err }

// NewError builds a DeployError of the given kind about path.
func NewError(kind ErrorKind, path string, cause error) *DeployError {
	return &DeployError{Kind: kind, Path: path, Err: cause}
}

// KindOf returns the kind carried by err, or zero when err is not a DeployError.
func KindOf(err error) ErrorKind {
	var de *DeployError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// ExitCode maps any error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
