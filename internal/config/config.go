// Package config builds the deployment configuration from, in increasing
// priority: defaults, a TOML file, the environment (optionally seeded from a
// .env file). Command-line flags are applied last by the caller.
package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DEPLOY_DLL_"

// UserConfigFile is the file searched in the XDG config directories.
const UserConfigFile = "deploy-dll/config.toml"

// DefaultPath returns the user's config file, or "" when there is none.
func DefaultPath() string {
	path, err := xdg.SearchConfigFile(UserConfigFile)
	if err != nil {
		return ""
	}
	return path
}

// LoadDotEnv loads .env from the working directory into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load returns the defaults merged with the TOML file at path. An empty path
// yields the defaults. Unknown keys are rejected.
func Load(path string) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Errorf("failed to parse config file %s: %s", path, strict.String())
		}
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies DEPLOY_DLL_* variables to cfg. Directory lists
// are split on the platform list separator, the ignore list on commas.
func ApplyEnvOverrides(cfg *model.Config, getenv func(string) string) error {
	bools := []struct {
		key string
		dst *bool
	}{
		{"VERBOSE", &cfg.Verbose},
		{"SKIP_ENV_PATH", &cfg.SkipEnvPath},
		{"COPY_VC_REDIST", &cfg.CopyVCRedist},
		{"ALLOW_MISSING", &cfg.AllowMissing},
		{"NO_SHALLOW_SEARCH", &cfg.NoShallowSearch},
		{"NO_DEEP_SEARCH", &cfg.NoDeepSearch},
	}
	for _, b := range bools {
		v := getenv(EnvPrefix + b.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s", EnvPrefix, b.key)
		}
		*b.dst = parsed
	}

	if v := getenv(EnvPrefix + "OBJDUMP_FILE"); v != "" {
		cfg.ObjdumpFile = v
	}
	if v := getenv(EnvPrefix + "INSPECTOR"); v != "" {
		cfg.Inspector = v
	}
	if v := getenv(EnvPrefix + "CMAKE_CACHE"); v != "" {
		cfg.CMakeCache = v
	}
	if v := getenv(EnvPrefix + "REPORT"); v != "" {
		cfg.ReportPath = v
	}
	if v := getenv(EnvPrefix + "REPORT_FORMAT"); v != "" {
		cfg.ReportFormat = v
	}

	lists := []struct {
		key string
		sep string
		dst *[]string
	}{
		{"SHALLOW_SEARCH_DIRS", string(os.PathListSeparator), &cfg.ShallowSearchDirs},
		{"DEEP_SEARCH_DIRS", string(os.PathListSeparator), &cfg.DeepSearchDirs},
		{"CMAKE_PREFIX_PATH", string(os.PathListSeparator), &cfg.CMakePrefixPaths},
		{"IGNORE", ",", &cfg.Ignore},
	}
	for _, l := range lists {
		if v := getenv(EnvPrefix + l.key); v != "" {
			*l.dst = splitList(v, l.sep)
		}
	}
	return nil
}

func splitList(v, sep string) []string {
	var out []string
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate rejects settings with values outside their known set.
func Validate(cfg *model.Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "invalid configuration")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return errors.Errorf("%s must not be empty", fieldName(fe.StructField()))
	case "oneof":
		return errors.Errorf("unknown %s %q (want one of: %s)", fieldName(fe.StructField()), fe.Value(), fe.Param())
	}
	return errors.Errorf("invalid %s %q", fieldName(fe.StructField()), fe.Value())
}

func fieldName(field string) string {
	switch field {
	case "ObjdumpFile":
		return "objdump file"
	case "Inspector":
		return "inspector"
	case "ReportFormat":
		return "report format"
	}
	return field
}
