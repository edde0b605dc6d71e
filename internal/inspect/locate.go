package inspect

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// lookPath and executable are swapped out by tests.
var (
	lookPath   = exec.LookPath
	executable = os.Executable
)

// LocateObjdump resolves the --objdump-file selector to an executable path:
//
//	[system]   objdump found on PATH
//	[builtin]  objdump shipped next to this executable
//	[auto]     [system], falling back to [builtin]
//	<path>     the given file
func LocateObjdump(selector string) (string, error) {
	switch selector {
	case model.ObjdumpSystem:
		return systemObjdump()
	case model.ObjdumpBuiltin:
		return builtinObjdump()
	case model.ObjdumpAuto, "":
		if path, err := systemObjdump(); err == nil {
			return path, nil
		}
		return builtinObjdump()
	}

	if !isFile(selector) {
		return "", model.NewError(model.ExplicitToolNotFound, selector,
			errors.New("given objdump file doesn't exist"))
	}
	return selector, nil
}

func systemObjdump() (string, error) {
	path, err := lookPath("objdump")
	if err != nil || !isFile(path) {
		return "", model.NewError(model.SystemToolNotFound, "objdump",
			errors.New("failed to find objdump in your system"))
	}
	return path, nil
}

func builtinObjdump() (string, error) {
	self, err := executable()
	if err != nil {
		return "", model.NewError(model.BundledToolNotFound, "", errors.Wrap(err, "cannot resolve current executable"))
	}

	name := "objdump"
	if runtime.GOOS == "windows" {
		name = "objdump.exe"
	}
	path := filepath.Join(filepath.Dir(self), name)
	if !isFile(path) {
		return "", model.NewError(model.BundledToolNotFound, path,
			errors.New("builtin objdump executable not found"))
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
