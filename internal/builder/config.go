package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFilename is looked up in the project root. It is optional.
const ConfigFilename = "genmake.toml"

type Config struct {
	Project  ProjectSection  `toml:"project"`
	Layout   LayoutSection   `toml:"layout"`
	Includes IncludesSection `toml:"includes"`
	Build    BuildSection    `toml:"build"`
}

// ProjectSection defines the [project] section
type ProjectSection struct {
	Name    string `toml:"name"`
	Library string `toml:"library"`
	Binary  string `toml:"binary"`
	Main    string `toml:"main"`
}

// LayoutSection defines the [layout(.*)] section
type LayoutSection struct {
	IncludeDirs []string `toml:"include_dirs"`
	Sources     []string `toml:"sources"`
	Exclude     []string `toml:"exclude"`
	Gitignore   bool     `toml:"gitignore"`
	EntryPrefix string   `toml:"entry_prefix"`
	TestsDir    string   `toml:"tests_dir"`
	TargetsDir  string   `toml:"targets_dir"`
	ToolsDir    string   `toml:"tools_dir"`
}

// IncludesSection defines the [includes(.*)] section
type IncludesSection struct {
	// Quoted also tracks `#include "foo.h"`. Off by default: only the
	// angle-bracket form is recognized.
	Quoted bool `toml:"quoted"`
}

// BuildSection defines the [build(.*)] section
type BuildSection struct {
	Target   string   `toml:"target"`
	Env      string   `toml:"env"`
	Cxx      string   `toml:"cxx"`
	Cxxflags []string `toml:"cxxflags"`
	Ldflags  []string `toml:"ldflags"`
}

// DefaultConfig returns the layout genmake assumes when there is no genmake.toml
func DefaultConfig(name string) *Config {
	cfg := new(Config)
	cfg.Project.Name = name
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Project.Name == "" {
		cfg.Project.Name = "project"
	}
	if cfg.Project.Library == "" {
		cfg.Project.Library = "lib" + cfg.Project.Name + ".a"
	}
	if cfg.Project.Binary == "" {
		cfg.Project.Binary = "main"
	}
	if cfg.Project.Main == "" {
		cfg.Project.Main = "main.cpp"
	}
	if len(cfg.Layout.IncludeDirs) == 0 {
		cfg.Layout.IncludeDirs = []string{"include", "src"}
	}
	if len(cfg.Layout.Sources) == 0 {
		cfg.Layout.Sources = []string{"**/*.cpp"}
	}
	if cfg.Layout.EntryPrefix == "" {
		cfg.Layout.EntryPrefix = "main"
	}
	if cfg.Layout.TestsDir == "" {
		cfg.Layout.TestsDir = "tests"
	}
	if cfg.Layout.TargetsDir == "" {
		cfg.Layout.TargetsDir = "targets"
	}
	if cfg.Layout.ToolsDir == "" {
		cfg.Layout.ToolsDir = "tools"
	}
	if cfg.Build.Target == "" {
		cfg.Build.Target = "x86_64"
	}
	if cfg.Build.Env == "" {
		cfg.Build.Env = "devel"
	}
	if cfg.Build.Ldflags == nil {
		cfg.Build.Ldflags = []string{"-lpthread"}
	}
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalConditionalSection parses a section, then merges every sub-table whose
// key is an expression evaluating to true, e.g. [build."tgt == 'mipsel'"]
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env))
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	// matching tables are merged in sorted key order
	for _, expression := range slices.Sorted(maps.Keys(conditionalFields)) {
		condMap := conditionalFields[expression]
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(condMap)), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

// ParseConfig parses genmake.toml. name is the fallback project name.
func ParseConfig(rdr io.Reader, name string, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %s", ConfigFilename, row, col, derr.Error())
		}
		return nil, err
	}
	if rawConfig == nil {
		rawConfig = map[string]any{}
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	cfg := new(Config)
	if err := unmarshalSection(rawConfig, "project", &cfg.Project); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "layout", &cfg.Layout, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "includes", &cfg.Includes, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "build", &cfg.Build, env); err != nil {
		return nil, err
	}

	if cfg.Project.Name == "" {
		cfg.Project.Name = name
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfig reads genmake.toml from the root of fsys, or returns the defaults if there is none
func LoadConfig(fsys fs.FS, name string, env ConfigEnv) (*Config, error) {
	f, err := fsys.Open(ConfigFilename)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(name), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), name, env)
}

// ConfigEnv is what expressions in genmake.toml can see
type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	Tgt        string            `expr:"tgt"`
	Env        string            `expr:"env"`
}

// NewConfigEnv builds an expression env from the host. tgt and env are the
// TGT/ENV selected on the command line and may be empty.
func NewConfigEnv(tgt, env string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		Tgt:        tgt,
		Env:        env,
	}
}
