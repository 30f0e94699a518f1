package builder

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(tgt, env string) ConfigEnv {
	return ConfigEnv{
		TargetOS:   "linux",
		TargetArch: "amd64",
		Environ:    map[string]string{"VERSION": "1.2"},
		Tgt:        tgt,
		Env:        env,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(fstest.MapFS{}, "mercury", testEnv("", ""))
	require.NoError(t, err)

	assert.Equal(t, "mercury", cfg.Project.Name)
	assert.Equal(t, "libmercury.a", cfg.Project.Library)
	assert.Equal(t, "main", cfg.Project.Binary)
	assert.Equal(t, "main.cpp", cfg.Project.Main)
	assert.Equal(t, []string{"include", "src"}, cfg.Layout.IncludeDirs)
	assert.Equal(t, []string{"**/*.cpp"}, cfg.Layout.Sources)
	assert.Equal(t, "tests", cfg.Layout.TestsDir)
	assert.Equal(t, "targets", cfg.Layout.TargetsDir)
	assert.Equal(t, "x86_64", cfg.Build.Target)
	assert.Equal(t, "devel", cfg.Build.Env)
	assert.Equal(t, []string{"-lpthread"}, cfg.Build.Ldflags)
	assert.False(t, cfg.Includes.Quoted)
}

func TestParseConfig_Overrides(t *testing.T) {
	src := `
[project]
name = "hermes"
binary = "hermesd"

[layout]
include_dirs = ["inc", "lib", "src"]
exclude = ["tools/**"]
gitignore = true

[includes]
quoted = true

[build]
env = "release"
ldflags = ["-lrt"]
cxxflags = ["-std=c++17", "-Wall"]
`
	cfg, err := ParseConfig(strings.NewReader(src), "ignored", testEnv("", ""))
	require.NoError(t, err)

	assert.Equal(t, "hermes", cfg.Project.Name)
	assert.Equal(t, "libhermes.a", cfg.Project.Library)
	assert.Equal(t, "hermesd", cfg.Project.Binary)
	assert.Equal(t, []string{"inc", "lib", "src"}, cfg.Layout.IncludeDirs)
	assert.Equal(t, []string{"tools/**"}, cfg.Layout.Exclude)
	assert.True(t, cfg.Layout.Gitignore)
	assert.True(t, cfg.Includes.Quoted)
	assert.Equal(t, "x86_64", cfg.Build.Target)
	assert.Equal(t, "release", cfg.Build.Env)
	assert.Equal(t, []string{"-lrt"}, cfg.Build.Ldflags)
	assert.Equal(t, []string{"-std=c++17", "-Wall"}, cfg.Build.Cxxflags)
}

func TestParseConfig_ConditionalSections(t *testing.T) {
	src := `
[build]
cxxflags = ["-Wall"]

[build."tgt == 'mipsel'"]
cxxflags = ["-EL"]
ldflags = ["-static"]

[build."target_os == 'windows'"]
cxxflags = ["/W4"]
`
	cfg, err := ParseConfig(strings.NewReader(src), "p", testEnv("mipsel", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall", "-EL"}, cfg.Build.Cxxflags)
	assert.Equal(t, []string{"-static"}, cfg.Build.Ldflags)

	cfg, err = ParseConfig(strings.NewReader(src), "p", testEnv("x86_64", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall"}, cfg.Build.Cxxflags)
	assert.Equal(t, []string{"-lpthread"}, cfg.Build.Ldflags)
}

func TestParseConfig_Expressions(t *testing.T) {
	src := `
[build]
cxxflags = ["-DVERSION={{ environ['VERSION'] }}", "-DOS_{{ target_os }}"]
`
	cfg, err := ParseConfig(strings.NewReader(src), "p", testEnv("", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"-DVERSION=1.2", "-DOS_linux"}, cfg.Build.Cxxflags)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("[build\ncxx = 1"), "p", testEnv("", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ConfigFilename)

	_, err = ParseConfig(strings.NewReader(`[build]
cxxflags = ["{{ nope( }}"]`), "p", testEnv("", ""))
	require.Error(t, err)

	_, err = ParseConfig(strings.NewReader("build = 3\n"), "p", testEnv("", ""))
	require.Error(t, err)
}

func TestLoadConfig_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		ConfigFilename: file("[project]\nlibrary = \"libcore.a\"\n"),
	}
	cfg, err := LoadConfig(fsys, "mercury", testEnv("", ""))
	require.NoError(t, err)
	assert.Equal(t, "mercury", cfg.Project.Name)
	assert.Equal(t, "libcore.a", cfg.Project.Library)
}

func TestParseConfig_ConditionalSectionsMergeInKeyOrder(t *testing.T) {
	src := `
[build]
cxxflags = ["-base"]

[build."tgt == 'mipsel'"]
cxxflags = ["-EL"]
cxx = "mipsel-linux-g++"

[build."env == 'release'"]
cxxflags = ["-O2"]
cxx = "release-g++"

[build."target_arch != ''"]
cxxflags = ["-arch"]

[build."true"]
ldflags = ["-lrt"]
`
	for range 100 {
		cfg, err := ParseConfig(strings.NewReader(src), "p", testEnv("mipsel", "release"))
		require.NoError(t, err)
		// keys sorted: env == ..., target_arch != ..., tgt == ..., true
		require.Equal(t, []string{"-base", "-O2", "-arch", "-EL"}, cfg.Build.Cxxflags)
		require.Equal(t, "mipsel-linux-g++", cfg.Build.Cxx)
		require.Equal(t, []string{"-lrt"}, cfg.Build.Ldflags)
	}
}
