package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("make", map[string]string{
		"make":  "GNU make",
		"ninja": "",
	})

	assert.Equal(t, "make", e.String())
	assert.Equal(t, "enum", e.Type())
	assert.Equal(t, "[make, ninja]", e.HelpString())

	require.NoError(t, e.Set("ninja"))
	assert.Equal(t, "ninja", e.Value())

	err := e.Set("vs2022")
	require.Error(t, err)
	assert.Equal(t, "must be one of: make, ninja", err.Error())
	assert.Equal(t, "ninja", e.Value())

	items, _ := e.CompletionFunc()(nil, nil, "")
	assert.ElementsMatch(t, []string{"make\tGNU make", "ninja"}, items)
}

func TestNewEnumValue_DefaultMustBeAllowed(t *testing.T) {
	assert.Panics(t, func() {
		NewEnumValue("msbuild", map[string]string{"make": ""})
	})
}

func TestTargetPath(t *testing.T) {
	assert.Equal(t, ".", targetPath(nil))
	assert.Equal(t, "../mercury", targetPath([]string{"../mercury"}))
}
