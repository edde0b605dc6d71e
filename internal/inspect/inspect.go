// Package inspect reads what the deployment engine needs to know about a PE
// binary: the DLL names it imports and its machine/format tag.
//
// Two backends exist. Objdump shells out to GNU objdump and parses its text
// output; Native reads the import directory with debug/pe. Both speak the
// same format-tag vocabulary so the engine can compare tags for equality.
package inspect

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// DLLExtension terminates every dependency name.
const DLLExtension = ".dll"

// Inspector is implemented by every backend.
type Inspector interface {
	// Format returns the opaque format tag of the binary at path.
	Format(ctx context.Context, path string) (string, error)
	// Dependencies returns the lower-cased DLL names the binary imports, in
	// declaration order. Duplicates are preserved.
	Dependencies(ctx context.Context, path string) ([]string, error)
}

// New returns the backend selected by cfg. For the objdump backend the tool
// is located with cfg.ObjdumpFile first.
func New(cfg *model.Config, logger zerolog.Logger) (Inspector, error) {
	if cfg.Inspector == model.InspectorNative {
		return &Native{}, nil
	}

	tool, err := LocateObjdump(cfg.ObjdumpFile)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("objdump", tool).Msg("Using objdump")
	return &Objdump{Path: tool}, nil
}
