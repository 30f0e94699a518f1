package msg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output()
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestLogLevels(t *testing.T) {
	buf := captureOutput(t)

	Info("scanned %d sources", 3)
	Warn("entry point %s not found", "main.cpp")
	Error("bad")
	assert.Equal(t, "info: scanned 3 sources\nwarn: entry point main.cpp not found\nerror: bad\n", buf.String())
}

func TestTrace(t *testing.T) {
	buf := captureOutput(t)
	t.Cleanup(func() { SetVerbose(false) })

	Trace("hidden")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Trace("resolve %s", "include/x.h")
	assert.Equal(t, "trace: resolve include/x.h\n", buf.String())
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &IndentWriter{Indent: "  ", W: &buf}

	n, err := w.Write([]byte("a\nb"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	_, _ = w.Write([]byte("c\n\nd\n"))
	assert.Equal(t, "  a\n  bc\n  \n  d\n", buf.String())
}

func TestLineDiff(t *testing.T) {
	old := "all: a b\n\ta\nx.o: x.cpp\n"
	new := "all: a b\n\ta\nx.o: x.cpp \\\n    x.h\ny.o: y.cpp\n"

	var buf bytes.Buffer
	changed := LineDiff(&buf, old, new)

	assert.Equal(t, 4, changed)
	assert.Equal(t, "    -x.o: x.cpp\n    +x.o: x.cpp \\\n    +    x.h\n    +y.o: y.cpp\n", buf.String())

	buf.Reset()
	assert.Zero(t, LineDiff(&buf, old, old))
	assert.Empty(t, buf.String())
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(4, 2, "scanning", &buf)
	for range 4 {
		pb.Step()
	}
	pb.Finish()

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "  scanning    100% ["+strings.Repeat("█", 40)+"] 4/4  \n"), out)
}
