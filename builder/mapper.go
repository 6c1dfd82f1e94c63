package builder

import (
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/electwix/db-mapper/cache"
	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/internal/fileset"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/scripting"
)

// StatementError reports which statement of a mapper file failed to
// build or register.
type StatementError struct {
	File string
	ID   string
	Err  error
}

func (e StatementError) Error() string {
	return fmt.Sprintf("%s: statement %s: %v", e.File, e.ID, e.Err)
}

func (e StatementError) Unwrap() error { return e.Err }

// mapperConfig mirrors one mapper file. The same schema decodes from
// TOML and YAML; the field names are the array-of-tables keys.
type mapperConfig struct {
	Caches     []cacheConfig     `toml:"cache" yaml:"cache"`
	Statements []statementConfig `toml:"statement" yaml:"statement"`
}

type cacheConfig struct {
	ID            string `toml:"id" yaml:"id"`
	Eviction      string `toml:"eviction" yaml:"eviction"`
	Size          int    `toml:"size" yaml:"size"`
	Blocking      bool   `toml:"blocking" yaml:"blocking"`
	BlockTimeout  string `toml:"block_timeout" yaml:"block_timeout"`
	FlushInterval string `toml:"flush_interval" yaml:"flush_interval"`
	ReadWrite     bool   `toml:"read_write" yaml:"read_write"`
	Logging       bool   `toml:"logging" yaml:"logging"`
}

type statementConfig struct {
	ID         string           `toml:"id" yaml:"id"`
	Command    string           `toml:"command" yaml:"command"`
	Type       string           `toml:"type" yaml:"type"`
	SQL        string           `toml:"sql" yaml:"sql"`
	Fragments  []fragmentConfig `toml:"fragment" yaml:"fragment"`
	Cache      string           `toml:"cache" yaml:"cache"`
	UseCache   *bool            `toml:"use_cache" yaml:"use_cache"`
	FlushCache *bool            `toml:"flush_cache" yaml:"flush_cache"`
	Timeout    string           `toml:"timeout" yaml:"timeout"`
}

// mapperFile is one parsed mapper plus the path for error messages.
type mapperFile struct {
	path string
	spec mapperConfig
}

// loadMapperFile reads and decodes one mapper file. The extension picks
// the format: .toml and .tml decode as TOML, .yaml and .yml as YAML.
func loadMapperFile(resolver fileset.Resolver, path string, strict bool) (*mapperFile, []string, error) {
	data, err := resolver.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read mapper %s: %w", path, err)
	}

	var spec mapperConfig
	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml", ".tml":
		if err := toml.Unmarshal(data, &spec); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return nil, nil, fmt.Errorf("%s: unsupported mapper format %q (want .toml or .yaml)", path, ext)
	}

	unknown := collectUnknownMapperKeys(raw)
	var warnings []string
	if len(unknown) > 0 {
		slices.Sort(unknown)
		message := fmt.Sprintf("%s: unknown mapper keys: %s", path, strings.Join(unknown, ", "))
		if strict {
			return nil, nil, errors.New(message)
		}
		warnings = append(warnings, message)
	}

	return &mapperFile{path: path, spec: spec}, warnings, nil
}

// collectUnknownMapperKeys checks the file's top level and each cache and
// statement entry. Fragment bodies are validated structurally when the
// node tree is built, not by key set.
func collectUnknownMapperKeys(raw map[string]any) []string {
	unknown := unknownIn(raw, "", map[string]struct{}{
		"cache":     {},
		"statement": {},
	})

	cacheKnown := map[string]struct{}{
		"id":             {},
		"eviction":       {},
		"size":           {},
		"blocking":       {},
		"block_timeout":  {},
		"flush_interval": {},
		"read_write":     {},
		"logging":        {},
	}
	statementKnown := map[string]struct{}{
		"id":          {},
		"command":     {},
		"type":        {},
		"sql":         {},
		"fragment":    {},
		"cache":       {},
		"use_cache":   {},
		"flush_cache": {},
		"timeout":     {},
	}

	unknown = append(unknown, unknownEntries(raw, "cache", cacheKnown)...)
	unknown = append(unknown, unknownEntries(raw, "statement", statementKnown)...)
	return unknown
}

func unknownEntries(raw map[string]any, section string, known map[string]struct{}) []string {
	unknown := make([]string, 0)
	for i, record := range entryRecords(raw[section]) {
		if record == nil {
			continue
		}
		prefix := fmt.Sprintf("%s[%d].", section, i)
		unknown = append(unknown, unknownIn(record, prefix, known)...)
	}
	return unknown
}

// entryRecords normalizes a decoded array-of-tables value. The TOML and
// YAML decoders disagree on the element type when decoding into any.
func entryRecords(v any) []map[string]any {
	switch entries := v.(type) {
	case []map[string]any:
		return entries
	case []any:
		records := make([]map[string]any, len(entries))
		for i, entry := range entries {
			record, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			records[i] = record
		}
		return records
	default:
		return nil
	}
}

func (mf *mapperFile) registerCaches(cfg *config.Config, logger *slog.Logger) error {
	for _, c := range mf.spec.Caches {
		region, err := buildCache(c, logger)
		if err != nil {
			return fmt.Errorf("%s: cache %s: %w", mf.path, c.ID, err)
		}
		if err := cfg.AddCache(region); err != nil {
			return fmt.Errorf("%s: %w", mf.path, err)
		}
	}
	return nil
}

func (mf *mapperFile) registerStatements(cfg *config.Config) error {
	dialect := cfg.Environment.Dialect
	for _, s := range mf.spec.Statements {
		ms, err := buildStatement(cfg, s, dialect)
		if err != nil {
			return StatementError{File: mf.path, ID: s.ID, Err: err}
		}
		if err := cfg.AddStatement(ms); err != nil {
			return StatementError{File: mf.path, ID: s.ID, Err: err}
		}
	}
	return nil
}

func buildCache(c cacheConfig, logger *slog.Logger) (cache.Cache, error) {
	blockTimeout, err := parseDuration(c.BlockTimeout)
	if err != nil {
		return nil, fmt.Errorf("block_timeout: %w", err)
	}
	flushInterval, err := parseDuration(c.FlushInterval)
	if err != nil {
		return nil, fmt.Errorf("flush_interval: %w", err)
	}

	opts := cache.Options{
		ID:              c.ID,
		Eviction:        cache.Eviction(c.Eviction),
		Capacity:        c.Size,
		FlushInterval:   flushInterval,
		ReadWrite:       c.ReadWrite,
		Blocking:        c.Blocking,
		BlockingTimeout: blockTimeout,
	}
	if c.Logging {
		opts.Logger = logger
	}
	return cache.Build(opts)
}

func buildStatement(cfg *config.Config, s statementConfig, dialect mapping.Dialect) (*mapping.MappedStatement, error) {
	if err := validateStatementID(s.ID); err != nil {
		return nil, err
	}

	command, err := mapping.ParseCommandType(s.Command)
	if err != nil {
		return nil, err
	}
	stmtType, err := mapping.ParseStatementType(s.Type)
	if err != nil {
		return nil, err
	}

	source, err := buildSource(s, dialect)
	if err != nil {
		return nil, err
	}

	var region cache.Cache
	if s.Cache != "" {
		var ok bool
		region, ok = cfg.Cache(s.Cache)
		if !ok {
			return nil, fmt.Errorf("references unknown cache %q", s.Cache)
		}
	}

	timeout, err := parseDuration(s.Timeout)
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}

	// Selects default to cached reads; writes default to flushing. Both
	// can be overridden per statement.
	useCache := command == mapping.CommandSelect
	if s.UseCache != nil {
		useCache = *s.UseCache
	}
	flushCache := command != mapping.CommandSelect
	if s.FlushCache != nil {
		flushCache = *s.FlushCache
	}

	return &mapping.MappedStatement{
		ID:                 s.ID,
		Command:            command,
		Type:               stmtType,
		Source:             source,
		Cache:              region,
		UseCache:           useCache,
		FlushCacheRequired: flushCache,
		Timeout:            timeout,
	}, nil
}

func buildSource(s statementConfig, dialect mapping.Dialect) (mapping.SQLSource, error) {
	switch {
	case s.SQL != "" && len(s.Fragments) > 0:
		return nil, errors.New("declares both sql and fragments")
	case s.SQL != "":
		return scripting.NewRawSQLSource(s.SQL, dialect)
	case len(s.Fragments) > 0:
		root, err := buildFragments(s.Fragments)
		if err != nil {
			return nil, err
		}
		return scripting.NewDynamicSQLSource(root, dialect), nil
	default:
		return nil, errors.New("declares no sql")
	}
}

// Statement ids are dot-separated identifiers, e.g. "users.byID". Each
// segment must be a valid identifier so ids stay usable as log fields
// and cache key prefixes. Go keywords are allowed as segments; ids like
// "users.select" are idiomatic for mapper files.
func validateStatementID(id string) error {
	if id == "" {
		return errors.New("requires an id")
	}
	for _, segment := range strings.Split(id, ".") {
		if !token.IsIdentifier(segment) && !token.Lookup(segment).IsKeyword() {
			return fmt.Errorf("invalid statement id %q", id)
		}
	}
	return nil
}
