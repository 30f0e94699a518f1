package builder

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_SortedAndEntryPointsExcluded(t *testing.T) {
	fsys := fstest.MapFS{
		"src/z.cpp":         file(""),
		"src/net/a.cpp":     file(""),
		"src/a.cpp":         file(""),
		"src/a.hpp":         file(""),
		"main.cpp":          file(""),
		"src/main_loop.cpp": file(""),
		"tests/foo.cpp":     file(""),
		"README.md":         file(""),
	}

	sources, err := Discover(fsys, DefaultConfig("p").Layout)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp", "src/net/a.cpp", "src/z.cpp", "tests/foo.cpp"}, sources)
}

func TestDiscover_EntryPointMarker(t *testing.T) {
	fsys := fstest.MapFS{
		"main.cpp":            file(""),
		"tools/main-cli.cpp":  file(""),
		"src/main.test.cpp":   file(""),
		"src/maintenance.cpp": file(""),
		"src/mainwindow.cpp":  file(""),
		"src/domain.cpp":      file(""),
	}

	sources, err := Discover(fsys, DefaultConfig("p").Layout)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/domain.cpp", "src/maintenance.cpp", "src/mainwindow.cpp"}, sources)

	layout := DefaultConfig("p").Layout
	layout.EntryPrefix = ""
	sources, err = Discover(fsys, layout)
	require.NoError(t, err)
	assert.Len(t, sources, 6)
}

func TestDiscover_ExcludeAndExtraPatterns(t *testing.T) {
	fsys := fstest.MapFS{
		"src/a.cpp":          file(""),
		"src/b.cc":           file(""),
		"tools/gen/gen.cpp":  file(""),
		"third_party/x.cpp":  file(""),
		"src/generated/g.cc": file(""),
	}

	layout := DefaultConfig("p").Layout
	layout.Sources = []string{"**/*.cpp", "src/**/*.cc", "src/*.cpp"}
	layout.Exclude = []string{"tools/**", "third_party/**", "src/generated/**"}

	sources, err := Discover(fsys, layout)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp", "src/b.cc"}, sources)
}

func TestDiscover_Gitignore(t *testing.T) {
	fsys := fstest.MapFS{
		".gitignore":         file("# build output\nbuild/\n*.gen.cpp\n"),
		"tools/.gitignore":   file("vendor\n"),
		"src/a.cpp":          file(""),
		"src/b.gen.cpp":      file(""),
		"build/x.cpp":        file(""),
		"tools/t.cpp":        file(""),
		"tools/vendor/v.cpp": file(""),
	}

	layout := DefaultConfig("p").Layout

	all, err := Discover(fsys, layout)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	layout.Gitignore = true
	sources, err := Discover(fsys, layout)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp", "tools/t.cpp"}, sources)
}

func TestIsTestSource(t *testing.T) {
	assert.True(t, IsTestSource("tests/foo.cpp", "tests"))
	assert.True(t, IsTestSource("tests/net/socket.cpp", "tests/"))
	assert.True(t, IsTestSource("./tests/foo.cpp", "./tests"))
	assert.False(t, IsTestSource("src/tests/foo.cpp", "tests"))
	assert.False(t, IsTestSource("tests.cpp", "tests"))
	assert.False(t, IsTestSource("testsuite/a.cpp", "tests"))
	assert.False(t, IsTestSource("tests/foo.cpp", ""))
}

func TestListTargets(t *testing.T) {
	fsys := fstest.MapFS{
		"targets/x86_64/devel.mk":  file(""),
		"targets/mipsel/devel.mk":  file(""),
		"targets/i386/release.mk":  file(""),
		"targets/README":           file(""),
		"targets/arm/sub/extra.mk": file(""),
	}

	assert.Equal(t, []string{"arm", "i386", "mipsel", "x86_64"}, ListTargets(fsys, "targets"))
}

func TestListTargets_MissingDirectory(t *testing.T) {
	assert.Empty(t, ListTargets(fstest.MapFS{"src/a.cpp": file("")}, "targets"))
}
