// Package builder loads a db-mapper configuration file and the mapper
// files it references, and assembles them into a config.Config ready for
// session.NewFactory. The top-level file is TOML; mapper files may be
// TOML or YAML and contribute cache regions and mapped statements.
package builder

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/internal/fileset"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/mapping"
)

// appConfig mirrors the top-level db-mapper TOML schema.
type appConfig struct {
	Environment environmentConfig `toml:"environment"`
	Settings    settingsConfig    `toml:"settings"`
	Mappers     []string          `toml:"mappers"`
}

type environmentConfig struct {
	ID     string `toml:"id"`
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type settingsConfig struct {
	CacheEnabled            *bool  `toml:"cache_enabled"`
	LocalCacheScope         string `toml:"local_cache_scope"`
	DefaultExecutorType     string `toml:"default_executor_type"`
	DefaultStatementTimeout string `toml:"default_statement_timeout"`
	LogLevel                string `toml:"log_level"`
	LogJSON                 bool   `toml:"log_json"`
}

// LoadOptions tunes configuration loading.
type LoadOptions struct {
	// Strict promotes unknown-key warnings to errors.
	Strict bool
	// Resolver overrides mapper file discovery; nil resolves globs
	// against the configuration file's directory.
	Resolver *fileset.Resolver
	// Logger overrides the [settings] log_level and log_json keys.
	Logger *slog.Logger
}

// Result wraps the assembled configuration alongside any non-fatal
// warnings.
type Result struct {
	Config   *config.Config
	Warnings []string
}

// Load reads, validates, and assembles a db-mapper configuration file.
// Mapper files are loaded in two passes, cache regions before statements,
// so a statement may reference a region declared in any mapper file.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var app appConfig
	if err := toml.Unmarshal(data, &app); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	unknown, err := collectUnknownKeys(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = settingsLogger(path, app.Settings)
		if err != nil {
			return res, err
		}
	}

	cfg := config.New()
	cfg.Logger = logger
	if err := applySettings(cfg, path, app.Settings); err != nil {
		return res, err
	}
	if err := applyEnvironment(cfg, path, app.Environment); err != nil {
		return res, err
	}

	resolver, err := mapperResolver(path, opts.Resolver)
	if err != nil {
		return res, err
	}

	// An absent mappers list is a code-first configuration; statements
	// are registered through config.AddStatement instead.
	var files []string
	if len(app.Mappers) > 0 {
		files, err = resolvePatterns(resolver, "mappers", app.Mappers)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}

	mappers := make([]*mapperFile, 0, len(files))
	for _, file := range files {
		mf, warnings, err := loadMapperFile(resolver, file, opts.Strict)
		if err != nil {
			return res, err
		}
		res.Warnings = append(res.Warnings, warnings...)
		mappers = append(mappers, mf)
	}

	for _, mf := range mappers {
		if err := mf.registerCaches(cfg, logger); err != nil {
			return res, err
		}
	}
	for _, mf := range mappers {
		if err := mf.registerStatements(cfg); err != nil {
			return res, err
		}
	}

	res.Config = cfg
	return res, nil
}

func collectUnknownKeys(data []byte) ([]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	unknown := unknownIn(raw, "", map[string]struct{}{
		"environment": {},
		"settings":    {},
		"mappers":     {},
	})
	unknown = append(unknown, unknownSection(raw, "environment", map[string]struct{}{
		"id":     {},
		"driver": {},
		"dsn":    {},
	})...)
	unknown = append(unknown, unknownSection(raw, "settings", map[string]struct{}{
		"cache_enabled":             {},
		"local_cache_scope":         {},
		"default_executor_type":     {},
		"default_statement_timeout": {},
		"log_level":                 {},
		"log_json":                  {},
	})...)
	return unknown, nil
}

// unknownIn lists the keys of record absent from known, each prefixed for
// the warning message.
func unknownIn(record map[string]any, prefix string, known map[string]struct{}) []string {
	unknown := make([]string, 0)
	for key := range record {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, prefix+key)
		}
	}
	return unknown
}

func unknownSection(raw map[string]any, section string, known map[string]struct{}) []string {
	record, ok := raw[section].(map[string]any)
	if !ok {
		return nil
	}
	return unknownIn(record, section+".", known)
}

func settingsLogger(path string, settings settingsConfig) (*slog.Logger, error) {
	var verbose bool
	switch settings.LogLevel {
	case "", "info":
	case "debug":
		verbose = true
	default:
		return nil, fmt.Errorf("%s: unknown log_level %q (want info or debug)", path, settings.LogLevel)
	}
	return logging.New(logging.Options{Verbose: verbose, JSON: settings.LogJSON}), nil
}

func applySettings(cfg *config.Config, path string, settings settingsConfig) error {
	if settings.CacheEnabled != nil {
		cfg.CacheEnabled = *settings.CacheEnabled
	}

	scope, err := config.ParseLocalCacheScope(settings.LocalCacheScope)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	cfg.LocalCacheScope = scope

	executor, err := config.ParseExecutorType(settings.DefaultExecutorType)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	cfg.DefaultExecutorType = executor

	timeout, err := parseDuration(settings.DefaultStatementTimeout)
	if err != nil {
		return fmt.Errorf("%s: default_statement_timeout: %w", path, err)
	}
	cfg.DefaultStatementTimeout = timeout
	return nil
}

// applyEnvironment opens the configured database pool. sql.Open validates
// the driver name without connecting, so loading a configuration never
// touches the database. A configuration without a driver is valid; it
// cannot open sessions until an environment is assigned in code.
func applyEnvironment(cfg *config.Config, path string, env environmentConfig) error {
	cfg.Environment.ID = env.ID
	if env.Driver == "" {
		if env.DSN != "" {
			return fmt.Errorf("%s: environment.dsn requires environment.driver", path)
		}
		return nil
	}

	db, err := sql.Open(env.Driver, env.DSN)
	if err != nil {
		return fmt.Errorf("%s: open environment database: %w", path, err)
	}
	cfg.Environment.DB = db
	cfg.Environment.Dialect = mapping.DialectForDriver(env.Driver)
	return nil
}

func mapperResolver(path string, override *fileset.Resolver) (fileset.Resolver, error) {
	if override != nil {
		return *override, nil
	}
	resolver, err := fileset.NewOSResolver(filepath.Dir(path))
	if err != nil {
		return fileset.Resolver{}, fmt.Errorf("%s: %w", path, err)
	}
	return resolver, nil
}

func resolvePatterns(resolver fileset.Resolver, field string, patterns []string) ([]string, error) {
	paths, err := resolver.Resolve(patterns)
	if err != nil {
		switch {
		case errors.Is(err, fileset.ErrNoPatterns):
			return nil, fmt.Errorf("%s must include at least one pattern", field)
		default:
			var noMatch fileset.NoMatchError
			if errors.As(err, &noMatch) {
				return nil, fmt.Errorf("%s patterns matched no files: %s", field, strings.Join(noMatch.Patterns, ", "))
			}

			var pattern fileset.PatternError
			if errors.As(err, &pattern) {
				return nil, fmt.Errorf("%s: invalid glob pattern %q: %w", field, pattern.Pattern, pattern.Err)
			}

			return nil, fmt.Errorf("%s: %w", field, err)
		}
	}
	return paths, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
