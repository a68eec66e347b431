package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn returns the config file in dir, or "" if there is none.
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// envKey maps LOOPSQL_QUERIES_DIR to queries_dir and LOOPSQL_VAR_TBL to vars.tbl.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if name, ok := strings.CutPrefix(key, "var_"); ok && name != "" {
		return "vars." + name
	}
	return key
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
// Paths from the config file resolve against the config file's directory;
// paths given as flags resolve against the working directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"queries_dir":  DefaultQueriesDir,
		"output_dir":   DefaultOutputDir,
		"template_ext": DefaultTemplateExt,
		"output_ext":   DefaultOutputExt,
		"concurrency":  DefaultConcurrency,
		"verbose":      false,
		"output":       DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = findConfigUpward(cwd)
	}
	projectRoot := cwd
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Load environment variables (LOOPSQL_ prefix)
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Snapshot file/env paths before flags, so that only those resolve against the project root.
	fileQueriesDir, fileOutputDir := k.String("queries_dir"), k.String("output_dir")

	// 4. Load flags (highest priority - overrides env vars and config file)
	var pairs, flagVarsFiles []string
	if flags != nil {
		if f := flags.Lookup("var"); f != nil && f.Changed {
			pairs, _ = flags.GetStringArray("var")
		}
		if f := flags.Lookup("vars-file"); f != nil && f.Changed {
			flagVarsFiles, _ = flags.GetStringArray("vars-file")
		}

		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Bindings are collected separately and appended, not overridden
			if f.Name == "var" || f.Name == "vars-file" || f.Name == "config" {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	// LOOPSQL_VARS_FILES=a.yaml,b.star arrives as one string
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths
	cfg.ProjectRoot = projectRoot
	cfg.QueriesDir = resolveLayered(cfg.QueriesDir, fileQueriesDir, projectRoot, cwd)
	cfg.OutputDir = resolveLayered(cfg.OutputDir, fileOutputDir, projectRoot, cwd)
	for i, vf := range cfg.VarsFiles {
		cfg.VarsFiles[i] = resolvePathRelativeTo(vf, projectRoot)
	}
	for _, vf := range flagVarsFiles {
		cfg.VarsFiles = append(cfg.VarsFiles, resolvePathRelativeTo(vf, cwd))
	}
	cfg.Pairs = pairs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// resolveLayered resolves value against the project root when it came from
// defaults, the config file or the environment, and against cwd when a flag changed it.
func resolveLayered(value, beforeFlags, projectRoot, cwd string) string {
	if value != beforeFlags {
		return resolvePathRelativeTo(value, cwd)
	}
	return resolvePathRelativeTo(value, projectRoot)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// Default returns a configuration with every default applied, rooted at dir.
func Default(dir string) *Config {
	return &Config{
		QueriesDir:   filepath.Join(dir, DefaultQueriesDir),
		OutputDir:    filepath.Join(dir, DefaultOutputDir),
		TemplateExt:  DefaultTemplateExt,
		OutputExt:    DefaultOutputExt,
		Concurrency:  DefaultConcurrency,
		OutputFormat: DefaultOutput,
		ProjectRoot:  dir,
	}
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
