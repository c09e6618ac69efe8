package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thushan/striker/internal/core/constants"
	"github.com/thushan/striker/internal/util"
)

const (
	DefaultConfigName = "striker"
	DefaultLogLevel   = "info"
	DefaultLogDir     = "./logs"
	DefaultTheme      = "default"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Workspace: ".",
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			LogDir:     DefaultLogDir,
			Theme:      DefaultTheme,
			FileOutput: false,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Retry: RetryConfig{
			MaxTries:     constants.DefaultMaxTries,
			InitialDelay: constants.DefaultInitialBackoff,
			MaxDelay:     constants.DefaultMaxBackoff,
		},
		Environment: map[string]string{},
	}
}

// Load builds the configuration from defaults, YAML sources and STRIKER_*
// environment variables, in increasing order of precedence.
//
// Each path names a file, a directory (every file in it, sorted, no
// recursion) or a glob (matches sorted). Sources are deep-merged in order so
// later ones win; a key that is a map in one source and a scalar in another
// fails with ErrInvalidConfig. With no paths, STRIKER_CONFIG_FILE (a path
// list) is used, and failing that striker.yaml is searched for in . and
// ./config. A missing searched file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(constants.ConfigEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) == 0 {
		if env := os.Getenv(constants.ConfigFileEnv); env != "" {
			paths = filepath.SplitList(env)
		}
	}

	var files []string
	if len(paths) == 0 {
		files = searchDefault()
	} else {
		var err error
		if files, err = expandSources(paths); err != nil {
			return nil, err
		}
	}

	merged := map[string]any{}
	for _, file := range files {
		raw, err := readSource(file)
		if err != nil {
			return nil, err
		}
		if err := mergeTree(merged, raw, nil); err != nil {
			return nil, fmt.Errorf("%w: merging %s: %w", ErrInvalidConfig, file, err)
		}
	}

	env, err := environmentSection(merged)
	if err != nil {
		return nil, err
	}
	// viper would fold PATH to path
	delete(merged, "environment")

	if err := v.MergeConfigMap(merged); err != nil {
		return nil, fmt.Errorf("error merging config: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Files = files
	if len(files) > 0 {
		cfg.Filename = files[len(files)-1]
	}

	if env != nil {
		cfg.Environment = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values striker cannot work with
func (c *Config) Validate() error {
	if c.Retry.MaxTries < 1 {
		return fmt.Errorf("%w: retry.max_tries must be at least 1, got %d", ErrInvalidConfig, c.Retry.MaxTries)
	}
	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("%w: retry.initial_delay cannot be negative", ErrInvalidConfig)
	}
	if c.Retry.MaxDelay < 0 {
		return fmt.Errorf("%w: retry.max_delay cannot be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAge < 0 {
		return fmt.Errorf("%w: logging rotation limits cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("workspace", cfg.Workspace)
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("dry_run", cfg.DryRun)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.log_dir", cfg.Logging.LogDir)
	v.SetDefault("logging.theme", cfg.Logging.Theme)
	v.SetDefault("logging.file_output", cfg.Logging.FileOutput)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)

	v.SetDefault("retry.max_tries", cfg.Retry.MaxTries)
	v.SetDefault("retry.initial_delay", cfg.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", cfg.Retry.MaxDelay)
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(lenientBoolHook),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// lenientBoolHook accepts yes/no, on/off and digit strings for bool fields
func lenientBoolHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Bool {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return util.ParseBool(v, util.NoDefault)
	case int:
		return util.ParseBool(v, util.NoDefault)
	case int64:
		return util.ParseBool(v, util.NoDefault)
	case uint64:
		return util.ParseBool(v, util.NoDefault)
	case float64:
		return util.ParseBool(v, util.NoDefault)
	}
	return data, nil
}

// searchDefault finds striker.yaml in the usual places, first match wins
func searchDefault() []string {
	for _, dir := range []string{".", "config"} {
		for _, ext := range []string{".yaml", ".yml"} {
			name := filepath.Join(dir, DefaultConfigName+ext)
			if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
				return []string{name}
			}
		}
	}
	return nil
}

// expandSources turns files, directories and globs into the ordered list of
// files to load. A plain path that does not exist is an error; a glob that
// matches nothing is not.
func expandSources(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err == nil && info.Mode().IsRegular():
			files = append(files, p)
		case err == nil && info.IsDir():
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("error reading config directory %s: %w", p, err)
			}
			// ReadDir sorts by name
			for _, entry := range entries {
				if entry.Type().IsRegular() {
					files = append(files, filepath.Join(p, entry.Name()))
				}
			}
		case hasMeta(p):
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, fmt.Errorf("bad config pattern %s: %w", p, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
					files = append(files, m)
				}
			}
		case err != nil:
			return nil, fmt.Errorf("error reading config file %s: %w", p, err)
		default:
			return nil, fmt.Errorf("error reading config file %s: not a regular file", p)
		}
	}
	return files, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// readSource parses one YAML source with yaml.v3, which keeps key case;
// viper folds keys to lower case and would turn PATH into path.
func readSource(filename string) (map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", filename, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", filename, err)
	}
	return raw, nil
}

// mergeTree folds src into dst. Maps merge recursively, anything else is
// replaced. A map meeting a non-map reports the key path.
func mergeTree(dst, src map[string]any, keyPath []string) error {
	for key, sv := range src {
		dv, exists := dst[key]
		if !exists {
			dst[key] = sv
			continue
		}

		path := append(slices.Clone(keyPath), key)
		dm, dIsMap := dv.(map[string]any)
		sm, sIsMap := sv.(map[string]any)
		switch {
		case dIsMap != sIsMap:
			return fmt.Errorf("/%s: type mismatch", strings.Join(path, "/"))
		case dIsMap:
			if err := mergeTree(dm, sm, path); err != nil {
				return err
			}
		default:
			dst[key] = sv
		}
	}
	return nil
}

// environmentSection pulls the case-preserved environment overrides out of
// the merged tree
func environmentSection(merged map[string]any) (map[string]string, error) {
	raw, ok := merged["environment"]
	if !ok || raw == nil {
		return nil, nil
	}

	section, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: environment must be a map", ErrInvalidConfig)
	}

	env := make(map[string]string, len(section))
	for k, v := range section {
		switch val := v.(type) {
		case nil:
			env[k] = ""
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: environment.%s must be a scalar", ErrInvalidConfig, k)
		default:
			env[k] = fmt.Sprint(val)
		}
	}
	return env, nil
}
