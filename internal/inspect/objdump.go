package inspect

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// Markers searched for in objdump output.
const (
	dllNameMarker    = "dll name: "
	fileFormatMarker = "file format "
)

// Objdump inspects binaries by running GNU objdump.
//
// Import listing:
//
//	objdump app.exe -x --section=.rdata
//	...
//	        DLL Name: libzip.dll
//	        DLL Name: KERNEL32.dll
//
// Format reporting:
//
//	objdump -f app.exe
//	app.exe:     file format pei-x86-64
type Objdump struct {
	Path string // objdump executable
}

// Format implements Inspector.
func (o *Objdump) Format(ctx context.Context, path string) (string, error) {
	out, err := o.run(ctx, "-f", path)
	if err != nil {
		return "", err
	}
	format, perr := ParseFormat(out)
	if perr != nil {
		perr.Path = path
		return "", perr
	}
	return format, nil
}

// Dependencies implements Inspector.
func (o *Objdump) Dependencies(ctx context.Context, path string) ([]string, error) {
	out, err := o.run(ctx, path, "-x", "--section=.rdata")
	if err != nil {
		return nil, err
	}
	deps, perr := ParseDependencies(out)
	if perr != nil {
		perr.Path = path
		return nil, perr
	}
	return deps, nil
}

// run executes objdump once and returns its stdout with carriage returns
// removed. A non-zero exit becomes a ToolInvocationFailure carrying stderr.
func (o *Objdump) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &model.DeployError{
			Kind:   model.ToolInvocationFailure,
			Path:   o.Path + " " + strings.Join(args, " "),
			Detail: stderr.String(),
			Err:    errors.WithStack(err),
		}
	}
	return strings.ReplaceAll(stdout.String(), "\r", ""), nil
}

// ParseFormat extracts the format tag from `objdump -f` output: everything
// after the last "file format " on the first line that carries the marker.
func ParseFormat(output string) (string, *model.DeployError) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if idx := strings.LastIndex(line, fileFormatMarker); idx != -1 {
			return line[idx+len(fileFormatMarker):], nil
		}
	}
	return "", &model.DeployError{
		Kind:   model.ParseFailure,
		Detail: output,
		Err:    errors.New("no file format line in objdump output"),
	}
}

// ParseDependencies extracts the imported DLL names from `objdump -x` output.
// The output is lower-cased first, so names come back lower-cased. A marker
// line whose name is missing or shorter than two characters fails the whole
// parse.
func ParseDependencies(output string) ([]string, *model.DeployError) {
	output = strings.ToLower(strings.ReplaceAll(output, "\r", ""))
	lines := strings.Split(output, "\n")
	deps := make([]string, 0, len(lines))

	for _, line := range lines {
		idx := strings.Index(line, dllNameMarker)
		if idx == -1 {
			continue
		}
		start := idx + len(dllNameMarker)
		end := strings.Index(line[start:], DLLExtension)
		if end < 2 {
			return nil, &model.DeployError{
				Kind:   model.ParseFailure,
				Detail: line,
				Err:    errors.Errorf("failed to parse dll name from %q", strings.TrimSpace(line)),
			}
		}
		deps = append(deps, line[start:start+end]+DLLExtension)
	}
	return deps, nil
}
