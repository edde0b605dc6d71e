// Package deployer implements the recursive deployment engine: it walks the
// import graph of a root binary and copies every DLL that is neither present
// nor provided by the system into the root binary's directory.
package deployer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/StinkyLord/deploy-dll/internal/inspect"
	"github.com/StinkyLord/deploy-dll/internal/locator"
	"github.com/StinkyLord/deploy-dll/internal/model"
)

// Classifier decides what to do with one dependency name.
type Classifier interface {
	Classify(name string) model.Classification
}

// Finder locates a DLL by name in a directory list.
type Finder interface {
	FindShallow(name string, dirs []string, validate locator.Validator) (string, bool, error)
	FindDeep(name string, dirs []string, validate locator.Validator) (string, bool, error)
}

// Deployer runs one deployment. It is not reusable across invocations.
type Deployer struct {
	cfg        *model.Config
	inspector  inspect.Inspector
	classifier Classifier
	finder     Finder
	shallow    []string
	deep       []string
	logger     zerolog.Logger

	rootFormat string
	report     *model.Report
	now        func() time.Time
}

// New wires a Deployer. shallow and deep are the composed search directories.
func New(
	cfg *model.Config,
	inspector inspect.Inspector,
	classifier Classifier,
	finder Finder,
	shallow, deep []string,
	logger zerolog.Logger,
) *Deployer {
	return &Deployer{
		cfg:        cfg,
		inspector:  inspector,
		classifier: classifier,
		finder:     finder,
		shallow:    shallow,
		deep:       deep,
		logger:     logger,
		now:        time.Now,
	}
}

// Run deploys the dependency closure of cfg.TargetBinary. The returned report
// is non-nil whenever the root binary could be inspected, also on error, and
// then describes everything copied before the failure.
func (d *Deployer) Run(ctx context.Context) (*model.Report, error) {
	root := d.cfg.TargetBinary

	format, err := d.inspector.Format(ctx, root)
	if err != nil {
		return nil, err
	}
	d.rootFormat = format

	d.report = &model.Report{
		RunID:     uuid.NewString(),
		Root:      root,
		TargetDir: d.cfg.TargetDir(),
		Format:    format,
		Inspector: d.cfg.Inspector,
		StartedAt: d.now(),
		Decisions: []model.Decision{},
		Deployed:  []model.DeployedFile{},
	}
	d.logger.Debug().Str("binary", root).Str("format", format).Msg("Deploying dependencies")

	err = d.deploy(ctx, root)
	d.report.FinishedAt = d.now()
	if err != nil {
		return d.report, err
	}

	d.logger.Info().
		Int("deployed", len(d.report.Deployed)).
		Int("missing", len(d.report.Missing)).
		Msg("Deployment finished")
	return d.report, nil
}

// deploy handles every import of binary in declaration order, descending into
// each freshly copied DLL before moving on to the next import.
func (d *Deployer) deploy(ctx context.Context, binary string) error {
	deps, err := d.inspector.Dependencies(ctx, binary)
	if err != nil {
		return err
	}

	for _, name := range deps {
		class := d.classifier.Classify(name)
		d.report.Decisions = append(d.report.Decisions, model.Decision{
			Binary:         binary,
			Dependency:     name,
			Classification: class,
		})
		if !class.NeedsDeployment() {
			d.logger.Debug().Str("dll", name).Str("reason", class.String()).Msg("Skipping")
			continue
		}

		source, found, err := d.locate(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			if !d.cfg.AllowMissing {
				return &model.DeployError{Kind: model.UnresolvedDependency, Path: binary, Dependency: name}
			}
			d.logger.Warn().Str("dll", name).Str("requiredBy", binary).Msg("Dependency not found")
			d.report.Missing = append(d.report.Missing, model.MissingDependency{Name: name, RequiredBy: binary})
			continue
		}

		target := filepath.Join(d.report.TargetDir, name)
		d.logger.Debug().Str("dll", name).Str("source", source).Msg("Copying")
		if err := copyFile(source, target); err != nil {
			return err
		}
		d.logger.Info().Str("dll", name).Msg("Deployed")
		d.report.Deployed = append(d.report.Deployed, model.DeployedFile{
			Name:       name,
			Source:     source,
			Target:     target,
			RequiredBy: binary,
			Format:     d.rootFormat,
		})

		if err := d.deploy(ctx, target); err != nil {
			return err
		}
	}
	return nil
}

// locate runs the shallow search, then the deep search, skipping whichever is
// disabled.
func (d *Deployer) locate(ctx context.Context, name string) (string, bool, error) {
	validate := d.sameFormat(ctx)

	if !d.cfg.NoShallowSearch {
		path, found, err := d.finder.FindShallow(name, d.shallow, validate)
		if err != nil || found {
			return path, found, err
		}
	}
	if !d.cfg.NoDeepSearch {
		return d.finder.FindDeep(name, d.deep, validate)
	}
	return "", false, nil
}

// sameFormat accepts candidates whose format tag equals the root binary's.
func (d *Deployer) sameFormat(ctx context.Context) locator.Validator {
	return func(path string) error {
		format, err := d.inspector.Format(ctx, path)
		if err != nil {
			return err
		}
		if format != d.rootFormat {
			return locator.Reject("architecture mismatch: %s is %s, want %s", path, format, d.rootFormat)
		}
		return nil
	}
}
