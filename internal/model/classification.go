package model

import "github.com/pkg/errors"

// Classification is the policy decision taken for one dependency name.
type Classification int

const (
	// Unresolved means the DLL must be located and copied.
	Unresolved Classification = iota
	// AlreadyDeployed means a file with that name already sits in the target directory.
	AlreadyDeployed
	// Ignored means the name is in the configured ignore set.
	Ignored
	// SystemOwned means the operating system ships the DLL.
	SystemOwned
	// Redistributable means the DLL belongs to the VC runtime and copying it is disabled.
	Redistributable
)

func (c Classification) String() string {
	switch c {
	case AlreadyDeployed:
		return "already-deployed"
	case Ignored:
		return "ignored"
	case SystemOwned:
		return "system"
	case Redistributable:
		return "vc-redist"
	default:
		return "unresolved"
	}
}

// MarshalText lets reports carry the readable name in JSON and YAML.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// NeedsDeployment reports whether the engine has to locate and copy the DLL.
func (c Classification) NeedsDeployment() bool {
	return c == Unresolved
}

// UnmarshalText is the inverse of MarshalText.
func (c *Classification) UnmarshalText(text []byte) error {
	for _, candidate := range []Classification{Unresolved, AlreadyDeployed, Ignored, SystemOwned, Redistributable} {
		if candidate.String() == string(text) {
			*c = candidate
			return nil
		}
	}
	return errors.Errorf("unknown classification %q", string(text))
}
