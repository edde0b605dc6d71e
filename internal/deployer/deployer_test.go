package deployer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/deploy-dll/internal/classify"
	"github.com/StinkyLord/deploy-dll/internal/locator"
	"github.com/StinkyLord/deploy-dll/internal/model"
	"github.com/StinkyLord/deploy-dll/internal/syslibs"
)

// fakeInspector reads binaries written by writeBinary: the first line is the
// format tag, the second the comma-separated imports.
type fakeInspector struct {
	extractions map[string]int
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{extractions: map[string]int{}}
}

func (f *fakeInspector) read(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read fake binary")
	}
	lines := strings.SplitN(string(data), "\n", 2)
	for len(lines) < 2 {
		lines = append(lines, "")
	}
	return lines, nil
}

func (f *fakeInspector) Format(_ context.Context, path string) (string, error) {
	lines, err := f.read(path)
	if err != nil {
		return "", err
	}
	return lines[0], nil
}

func (f *fakeInspector) Dependencies(_ context.Context, path string) ([]string, error) {
	f.extractions[filepath.Base(path)]++
	lines, err := f.read(path)
	if err != nil {
		return nil, err
	}
	if lines[1] == "" {
		return nil, nil
	}
	return strings.Split(lines[1], ","), nil
}

func writeBinary(t *testing.T, path, format string, deps ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := format + "\n" + strings.Join(deps, ",")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type fixture struct {
	root    string
	app     string
	cfg     *model.Config
	inspect *fakeInspector
	system  *syslibs.StaticClassifier
}

func newFixture(t *testing.T, deps ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	app := filepath.Join(root, "out", "app.exe")
	writeBinary(t, app, "pei-x86-64", deps...)

	cfg := model.DefaultConfig()
	cfg.TargetBinary = app
	return &fixture{
		root:    root,
		app:     app,
		cfg:     cfg,
		inspect: newFakeInspector(),
		system:  syslibs.NewStatic("kernel32.dll"),
	}
}

func (fx *fixture) dir(name string) string { return filepath.Join(fx.root, name) }

func (fx *fixture) target(name string) string { return filepath.Join(fx.cfg.TargetDir(), name) }

func (fx *fixture) run(t *testing.T, shallow, deep []string) (*model.Report, error) {
	t.Helper()
	d := New(fx.cfg, fx.inspect, classify.New(fx.cfg, fx.system), locator.New(zerolog.Nop()),
		shallow, deep, zerolog.Nop())
	return d.Run(context.Background())
}

func TestRun_ConcreteScenario(t *testing.T) {
	fx := newFixture(t, "a.dll", "b.dll")
	writeBinary(t, fx.target("a.dll"), "pei-x86-64", "never-read.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "b.dll"), "pei-x86-64", "c.dll")
	writeBinary(t, filepath.Join(fx.dir("deep"), "nested", "c.dll"), "pei-x86-64")
	before, err := os.ReadFile(fx.target("a.dll"))
	require.NoError(t, err)

	report, err := fx.run(t, []string{fx.dir("shallow")}, []string{fx.dir("deep")})

	require.NoError(t, err)
	assert.Equal(t, []string{"b.dll", "c.dll"}, report.DeployedNames())
	assert.FileExists(t, fx.target("b.dll"))
	assert.FileExists(t, fx.target("c.dll"))
	after, err := os.ReadFile(fx.target("a.dll"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, fx.inspect.extractions["a.dll"])

	assert.Equal(t, fx.target("b.dll"), report.Deployed[1].RequiredBy)
	assert.Equal(t, "pei-x86-64", report.Format)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []model.Decision{
		{Binary: fx.app, Dependency: "a.dll", Classification: model.AlreadyDeployed},
		{Binary: fx.app, Dependency: "b.dll", Classification: model.Unresolved},
		{Binary: fx.target("b.dll"), Dependency: "c.dll", Classification: model.Unresolved},
	}, report.Decisions)
}

func TestRun_CopyIsByteIdenticalWithSourcePermissions(t *testing.T) {
	fx := newFixture(t, "b.dll")
	src := filepath.Join(fx.dir("shallow"), "b.dll")
	writeBinary(t, src, "pei-x86-64")
	require.NoError(t, os.Chmod(src, 0o750))

	_, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(fx.target("b.dll"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(fx.target("b.dll"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestRun_Idempotent(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "b.dll"), "pei-x86-64", "c.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "c.dll"), "pei-x86-64")

	first, err := fx.run(t, []string{fx.dir("shallow")}, nil)
	require.NoError(t, err)
	require.Len(t, first.Deployed, 2)

	second, err := fx.run(t, []string{fx.dir("shallow")}, nil)
	require.NoError(t, err)
	assert.Empty(t, second.Deployed)
	for _, d := range second.Decisions {
		assert.Equal(t, model.AlreadyDeployed, d.Classification)
	}
}

func TestRun_CycleTerminates(t *testing.T) {
	fx := newFixture(t, "a.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "a.dll"), "pei-x86-64", "b.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "b.dll"), "pei-x86-64", "a.dll")

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.dll", "b.dll"}, report.DeployedNames())
	assert.Equal(t, 1, fx.inspect.extractions["a.dll"])
	assert.Equal(t, 1, fx.inspect.extractions["b.dll"])
}

func TestRun_DuplicateImportsCopiedOnce(t *testing.T) {
	fx := newFixture(t, "b.dll", "b.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "b.dll"), "pei-x86-64")

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"b.dll"}, report.DeployedNames())
	require.Len(t, report.Decisions, 2)
	assert.Equal(t, model.AlreadyDeployed, report.Decisions[1].Classification)
}

func TestRun_ShallowBeatsDeep(t *testing.T) {
	fx := newFixture(t, "b.dll")
	s1, s2, d1 := fx.dir("s1"), fx.dir("s2"), fx.dir("d1")
	require.NoError(t, os.MkdirAll(s1, 0o755))
	writeBinary(t, filepath.Join(s2, "b.dll"), "pei-x86-64")
	writeBinary(t, filepath.Join(d1, "b.dll"), "pei-x86-64")

	report, err := fx.run(t, []string{s1, s2}, []string{d1})

	require.NoError(t, err)
	require.Len(t, report.Deployed, 1)
	assert.Equal(t, filepath.Join(s2, "b.dll"), report.Deployed[0].Source)
}

func TestRun_NoShallowSearchUsesDeep(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("s"), "b.dll"), "pei-x86-64")
	writeBinary(t, filepath.Join(fx.dir("d"), "x", "b.dll"), "pei-x86-64")
	fx.cfg.NoShallowSearch = true

	report, err := fx.run(t, []string{fx.dir("s")}, []string{fx.dir("d")})

	require.NoError(t, err)
	require.Len(t, report.Deployed, 1)
	assert.Equal(t, filepath.Join(fx.dir("d"), "x", "b.dll"), report.Deployed[0].Source)
}

func TestRun_NoDeepSearch(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("d"), "b.dll"), "pei-x86-64")
	fx.cfg.NoDeepSearch = true

	_, err := fx.run(t, nil, []string{fx.dir("d")})

	assert.Equal(t, model.UnresolvedDependency, model.KindOf(err))
}

func TestRun_IgnoredNeverCopied(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "b.dll"), "pei-x86-64")
	fx.cfg.Ignore = []string{"b.dll"}

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	assert.Empty(t, report.Deployed)
	assert.NoFileExists(t, fx.target("b.dll"))
}

func TestRun_SystemAndRedistSkipped(t *testing.T) {
	fx := newFixture(t, "kernel32.dll", "api-ms-win-crt-runtime-l1-1-0.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "kernel32.dll"), "pei-x86-64")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "api-ms-win-crt-runtime-l1-1-0.dll"), "pei-x86-64")

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	assert.Empty(t, report.Deployed)
	assert.Equal(t, model.SystemOwned, report.Decisions[0].Classification)
	assert.Equal(t, model.Redistributable, report.Decisions[1].Classification)
}

func TestRun_CopyVCRedist(t *testing.T) {
	fx := newFixture(t, "api-ms-win-crt-runtime-l1-1-0.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "api-ms-win-crt-runtime-l1-1-0.dll"), "pei-x86-64")
	fx.cfg.CopyVCRedist = true

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"api-ms-win-crt-runtime-l1-1-0.dll"}, report.DeployedNames())
}

func TestRun_ArchitectureMismatchRejected(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("x86"), "b.dll"), "pei-i386")
	writeBinary(t, filepath.Join(fx.dir("x64"), "b.dll"), "pei-x86-64")

	report, err := fx.run(t, []string{fx.dir("x86"), fx.dir("x64")}, nil)

	require.NoError(t, err)
	require.Len(t, report.Deployed, 1)
	assert.Equal(t, filepath.Join(fx.dir("x64"), "b.dll"), report.Deployed[0].Source)
}

func TestRun_OnlyMismatchedCandidateIsUnresolved(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("x86"), "b.dll"), "pei-i386")

	_, err := fx.run(t, []string{fx.dir("x86")}, []string{fx.dir("x86")})

	require.Error(t, err)
	var de *model.DeployError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, model.UnresolvedDependency, de.Kind)
	assert.Equal(t, "b.dll", de.Dependency)
	assert.Equal(t, fx.app, de.Path)
	assert.Equal(t, 6, model.ExitCode(err))
	assert.NoFileExists(t, fx.target("b.dll"))
}

func TestRun_MissingIntolerantStopsRun(t *testing.T) {
	fx := newFixture(t, "b.dll", "c.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "c.dll"), "pei-x86-64")

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	assert.Equal(t, model.UnresolvedDependency, model.KindOf(err))
	require.NotNil(t, report)
	assert.Empty(t, report.Deployed)
	assert.NoFileExists(t, fx.target("c.dll"))
}

func TestRun_MissingTolerated(t *testing.T) {
	fx := newFixture(t, "b.dll", "c.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "c.dll"), "pei-x86-64", "d.dll")
	fx.cfg.AllowMissing = true

	report, err := fx.run(t, []string{fx.dir("shallow")}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"c.dll"}, report.DeployedNames())
	assert.Equal(t, []string{"b.dll", "d.dll"}, report.MissingNames())
	assert.Equal(t, fx.target("c.dll"), report.Missing[1].RequiredBy)
}

func TestRun_RootInspectionFailure(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.TargetBinary = filepath.Join(fx.root, "out", "gone.exe")

	report, err := fx.run(t, nil, nil)

	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestRun_CopyFailure(t *testing.T) {
	fx := newFixture(t, "b.dll")
	writeBinary(t, filepath.Join(fx.dir("shallow"), "b.dll"), "pei-x86-64")

	// a classifier that never reports the existing copy forces an overwrite attempt
	writeBinary(t, fx.target("b.dll"), "pei-x86-64")
	d := New(fx.cfg, fx.inspect, unresolvedOnly{}, locator.New(zerolog.Nop()),
		[]string{fx.dir("shallow")}, nil, zerolog.Nop())

	_, err := d.Run(context.Background())

	assert.Equal(t, model.CopyFailure, model.KindOf(err))
	assert.Equal(t, 7, model.ExitCode(err))
}

type unresolvedOnly struct{}

func (unresolvedOnly) Classify(string) model.Classification { return model.Unresolved }
