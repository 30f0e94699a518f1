package msg

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff writes a line-oriented diff of old -> new to w, indented, and returns the
// number of changed lines. Unchanged lines are skipped.
func LineDiff(w io.Writer, old, new string) int {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	iw := &IndentWriter{Indent: "    ", W: w}
	changed := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fmt.Fprintln(iw, color.GreenString("+%s", line))
			case diffmatchpatch.DiffDelete:
				fmt.Fprintln(iw, color.RedString("-%s", line))
			}
			changed++
		}
	}
	return changed
}
