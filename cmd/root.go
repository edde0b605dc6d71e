package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/StinkyLord/deploy-dll/internal/classify"
	"github.com/StinkyLord/deploy-dll/internal/config"
	"github.com/StinkyLord/deploy-dll/internal/deployer"
	"github.com/StinkyLord/deploy-dll/internal/inspect"
	"github.com/StinkyLord/deploy-dll/internal/locator"
	"github.com/StinkyLord/deploy-dll/internal/logging"
	"github.com/StinkyLord/deploy-dll/internal/model"
	"github.com/StinkyLord/deploy-dll/internal/output"
	"github.com/StinkyLord/deploy-dll/internal/searchpath"
	"github.com/StinkyLord/deploy-dll/internal/syslibs"
)

const toolVersion = "1.0.0"

var (
	flagSkipEnvPath       bool
	flagCopyVCRedist      bool
	flagVerbose           bool
	flagShallowSearchDirs []string
	flagNoShallowSearch   bool
	flagDeepSearchDirs    []string
	flagNoDeepSearch      bool
	flagCMakePrefixPaths  []string
	flagCMakeCache        string
	flagIgnore            []string
	flagObjdumpFile       string
	flagAllowMissing      bool
	flagInspector         string
	flagConfig            string
	flagReport            string
	flagReportFormat      string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy-dll <binary>",
		Short: "Copy the DLLs a Windows binary needs next to it",
		Long: `deploy-dll reads the import table of a PE executable or DLL and copies every
DLL it depends on, recursively, into the binary's directory.

A dependency is skipped when a file of that name is already there, when it is
ignored, when Windows ships it, or when it belongs to the VC++ redistributable.
Everything else is looked up in the shallow search directories first, then
walked for in the deep search directories. Only candidates with the same
machine format as the binary are accepted.

Examples:
  deploy-dll build/app.exe --cmake-prefix-path C:/Qt/6.7.0/msvc2019_64
  deploy-dll build/app.exe --deep-search-dir C:/vcpkg/installed --allow-missing
  deploy-dll build/app.exe --inspector native --report deploy.json --report-format cyclonedx`,
		Args:          cobra.ExactArgs(1),
		Version:       toolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDeploy,
	}

	f := cmd.Flags()
	f.BoolVar(&flagSkipEnvPath, "skip-env-path", false, "Do not search the directories listed in PATH (Windows only)")
	f.BoolVar(&flagCopyVCRedist, "copy-vc-redist", false, "Also deploy api-ms-win-* VC++ runtime DLLs")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
	f.StringArrayVar(&flagShallowSearchDirs, "shallow-search-dir", nil, "Directory searched non-recursively (repeatable)")
	f.BoolVar(&flagNoShallowSearch, "no-shallow-search", false, "Disable the shallow search")
	f.StringArrayVar(&flagDeepSearchDirs, "deep-search-dir", nil, "Directory searched recursively (repeatable)")
	f.BoolVar(&flagNoDeepSearch, "no-deep-search", false, "Disable the deep search")
	f.StringArrayVar(&flagCMakePrefixPaths, "cmake-prefix-path", nil,
		"CMake prefix path whose bin directory is searched (repeatable, ';'-separated lists allowed)")
	f.StringVar(&flagCMakeCache, "cmake-cache", "",
		"CMakeCache.txt, or a build directory containing one, to take more prefix paths from")
	f.StringArrayVar(&flagIgnore, "ignore", nil, "DLL name that is never deployed (repeatable)")
	f.StringVar(&flagObjdumpFile, "objdump-file", model.ObjdumpAuto,
		"objdump to use: [auto], [system], [builtin] or a path")
	f.BoolVar(&flagAllowMissing, "allow-missing", false, "Warn about unresolved DLLs instead of failing")
	f.StringVar(&flagInspector, "inspector", model.InspectorObjdump, "Binary inspector: objdump or native")
	f.StringVar(&flagConfig, "config", "", "TOML config file (default: deploy-dll/config.toml in the XDG config dirs)")
	f.StringVar(&flagReport, "report", "", "Write a deployment report to this path (use '-' for stdout)")
	f.StringVar(&flagReportFormat, "report-format", model.ReportJSON, "Report format: json, yaml, tree or cyclonedx")
	return cmd
}

// Execute runs the command and exits with the status of the error kind.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// printError reports a fatal error once, whatever level the user asked for.
func printError(w io.Writer, err error) {
	logger := logging.NewAtLevel(w, zerolog.ErrorLevel)
	logger.Error().Msg(err.Error())
}

// exitCode maps deployment errors to their status; anything else, such as a
// usage error, exits with 1.
func exitCode(err error) int {
	if code := model.ExitCode(err); code != 0 {
		return code
	}
	return 1
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Verbose)
	logger.Debug().Str("version", toolVersion).Str("binary", cfg.TargetBinary).Msg("deploy-dll")

	if cfg.CMakeCache != "" {
		prefixes, err := searchpath.PrefixesFromCMakeCache(cfg.CMakeCache)
		if err != nil {
			return err
		}
		logger.Debug().Strs("prefixes", prefixes).Str("cache", cfg.CMakeCache).Msg("Prefix paths from CMake cache")
		cfg.CMakePrefixPaths = append(cfg.CMakePrefixPaths, prefixes...)
	}

	insp, err := inspect.New(cfg, logging.Component(logger, "inspect"))
	if err != nil {
		return err
	}

	paths := searchpath.New()
	shallow := paths.Shallow(cfg)
	deep := paths.Deep(cfg)
	logger.Debug().Strs("shallow", shallow).Strs("deep", deep).Msg("Search directories")

	d := deployer.New(
		cfg,
		insp,
		classify.New(cfg, syslibs.ForPlatform(runtime.GOOS)),
		locator.New(logging.Component(logger, "locator")),
		shallow,
		deep,
		logging.Component(logger, "deployer"),
	)
	report, runErr := d.Run(cmd.Context())

	if report != nil && cfg.ReportPath != "" {
		if err := output.Write(report, cfg.ReportFormat, cfg.ReportPath, toolVersion); err != nil {
			if runErr == nil {
				return err
			}
			logger.Warn().Err(err).Msg("Failed to write report")
		} else if cfg.ReportPath != "-" {
			logger.Info().Str("path", cfg.ReportPath).Msg("Report written")
		}
	}
	return runErr
}

// buildConfig layers defaults, the config file, the environment and the flags
// the user actually set, then resolves and checks the target binary.
func buildConfig(cmd *cobra.Command, target string) (*model.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	config.LoadDotEnv()
	if err := config.ApplyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}

	applyFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, model.NewError(model.TargetNotAFile, target, errors.WithStack(err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, model.NewError(model.TargetNotAFile, abs, errors.WithStack(err))
	}
	if !info.Mode().IsRegular() {
		return nil, model.NewError(model.TargetNotAFile, abs, nil)
	}
	cfg.TargetBinary = abs
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	f := cmd.Flags()
	if f.Changed("skip-env-path") {
		cfg.SkipEnvPath = flagSkipEnvPath
	}
	if f.Changed("copy-vc-redist") {
		cfg.CopyVCRedist = flagCopyVCRedist
	}
	if f.Changed("verbose") {
		cfg.Verbose = flagVerbose
	}
	if f.Changed("shallow-search-dir") {
		cfg.ShallowSearchDirs = flagShallowSearchDirs
	}
	if f.Changed("no-shallow-search") {
		cfg.NoShallowSearch = flagNoShallowSearch
	}
	if f.Changed("deep-search-dir") {
		cfg.DeepSearchDirs = flagDeepSearchDirs
	}
	if f.Changed("no-deep-search") {
		cfg.NoDeepSearch = flagNoDeepSearch
	}
	if f.Changed("cmake-prefix-path") {
		cfg.CMakePrefixPaths = flagCMakePrefixPaths
	}
	if f.Changed("cmake-cache") {
		cfg.CMakeCache = flagCMakeCache
	}
	if f.Changed("ignore") {
		cfg.Ignore = flagIgnore
	}
	if f.Changed("objdump-file") {
		cfg.ObjdumpFile = flagObjdumpFile
	}
	if f.Changed("allow-missing") {
		cfg.AllowMissing = flagAllowMissing
	}
	if f.Changed("inspector") {
		cfg.Inspector = flagInspector
	}
	if f.Changed("report") {
		cfg.ReportPath = flagReport
	}
	if f.Changed("report-format") {
		cfg.ReportFormat = flagReportFormat
	}
}
