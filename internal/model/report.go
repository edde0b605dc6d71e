package model

import (
	"time"
)

// Decision records the classification of one dependency edge.
type Decision struct {
	Binary         string         `json:"binary" yaml:"binary"`         // path of the binary declaring the import
	Dependency     string         `json:"dependency" yaml:"dependency"` // lower-cased DLL name
	Classification Classification `json:"classification" yaml:"classification"`
}

// DeployedFile is one DLL copied into the target directory.
type DeployedFile struct {
	Name       string `json:"name" yaml:"name"`
	Source     string `json:"source" yaml:"source"`
	Target     string `json:"target" yaml:"target"`
	RequiredBy string `json:"requiredBy" yaml:"requiredBy"`
	Format     string `json:"format" yaml:"format"`
}

// MissingDependency is a DLL that could not be located while missing
// dependencies were tolerated.
type MissingDependency struct {
	Name       string `json:"name" yaml:"name"`
	RequiredBy string `json:"requiredBy" yaml:"requiredBy"`
}

// Report describes the outcome of one invocation. Deployed only grows while
// the engine runs.
type Report struct {
	RunID      string              `json:"runId" yaml:"runId"`
	Root       string              `json:"root" yaml:"root"`
	TargetDir  string              `json:"targetDir" yaml:"targetDir"`
	Format     string              `json:"format" yaml:"format"`
	Inspector  string              `json:"inspector" yaml:"inspector"`
	StartedAt  time.Time           `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt" yaml:"finishedAt"`
	Decisions  []Decision          `json:"decisions" yaml:"decisions"`
	Deployed   []DeployedFile      `json:"deployed" yaml:"deployed"`
	Missing    []MissingDependency `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// DeployedNames lists the names of all copied DLLs in copy order.
func (r *Report) DeployedNames() []string {
	names := make([]string, 0, len(r.Deployed))
	for _, d := range r.Deployed {
		names = append(names, d.Name)
	}
	return names
}

// MissingNames lists the names of all tolerated missing DLLs.
func (r *Report) MissingNames() []string {
	names := make([]string, 0, len(r.Missing))
	for _, m := range r.Missing {
		names = append(names, m.Name)
	}
	return names
}
