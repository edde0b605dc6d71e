package deployer

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// copyFile copies source to target byte for byte and gives target the
// permission bits of source. An existing target is never overwritten. A target
// created by a failed copy is removed again, so it is never mistaken for a
// deployed DLL.
func copyFile(source, target string) (err error) {
	fail := func(cause error) error {
		return &model.DeployError{Kind: model.CopyFailure, Path: target, Err: errors.Wrapf(cause, "copy from %s", source)}
	}

	in, err := os.Open(source)
	if err != nil {
		return fail(err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fail(err)
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fail(err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fail(cerr)
		}
		if err != nil {
			_ = os.Remove(target)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fail(err)
	}
	// OpenFile's mode is subject to the umask.
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		return fail(err)
	}
	return nil
}
