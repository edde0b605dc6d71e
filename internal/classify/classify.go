// Package classify decides, for one DLL name, whether the deployment engine
// has to locate and copy it.
package classify

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/StinkyLord/deploy-dll/internal/model"
	"github.com/StinkyLord/deploy-dll/internal/syslibs"
)

// vcRedistPrefix marks the API-set DLLs of the Visual C++ redistributable.
const vcRedistPrefix = "api-ms-win"

// IsVCRedist reports whether name belongs to the VC++ redistributable runtime.
func IsVCRedist(name string) bool {
	return strings.HasPrefix(name, vcRedistPrefix)
}

// Classifier applies the deployment policy. It keeps no state between calls:
// every answer is derived from the configuration and the target directory as
// it is on disk right now.
type Classifier struct {
	cfg    *model.Config
	system syslibs.Classifier
}

// New returns a Classifier for cfg using system to recognise OS libraries.
func New(cfg *model.Config, system syslibs.Classifier) *Classifier {
	return &Classifier{cfg: cfg, system: system}
}

// Classify returns the first matching outcome of: already deployed, ignored,
// system owned, VC redistributable (unless copying it is enabled), and
// finally unresolved.
func (c *Classifier) Classify(name string) model.Classification {
	if isFile(filepath.Join(c.cfg.TargetDir(), name)) {
		return model.AlreadyDeployed
	}
	if c.cfg.IsIgnored(name) {
		return model.Ignored
	}
	if c.system.IsSystemLibrary(name) {
		return model.SystemOwned
	}
	if !c.cfg.CopyVCRedist && IsVCRedist(name) {
		return model.Redistributable
	}
	return model.Unresolved
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
