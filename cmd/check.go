// genmake check [path]
package cmd

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/qobs-build/genmake/internal/msg"
	"github.com/spf13/cobra"
)

var flagCheckFile string

func doCheck(cmd *cobra.Command, args []string) {
	target := targetPath(args)
	b := newBuilder(target)

	var buf bytes.Buffer
	if err := b.Generate(context.Background(), &buf); err != nil {
		msg.Fatal("%v", err)
	}

	file := flagCheckFile
	if file == "" {
		file = filepath.Join(target, b.BuildFile())
	}
	existing, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		msg.Fatal("%s does not exist, create it with `%s > %s`", file, regenerateCommand(), b.BuildFile())
	}
	if err != nil {
		msg.Fatal("read %s: %v", file, err)
	}

	if bytes.Equal(existing, buf.Bytes()) {
		msg.Info("%s is up to date", file)
		return
	}

	msg.Error("%s is out of date:", file)
	changed := msg.LineDiff(msg.Output(), string(existing), buf.String())
	msg.Fatal("%d lines differ, regenerate with `%s > %s`", changed, regenerateCommand(), b.BuildFile())
}

var checkCmd = &cobra.Command{
	Use:   "check [target path]",
	Short: "Check that the build file is up to date",
	Long: `Regenerate the build file in memory and compare it with the one on disk.
Prints a diff and exits with status 1 when they differ.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doCheck,
}

func init() {
	// genmake check subcommand
	rootCmd.AddCommand(checkCmd)
	addGenerateFlags(checkCmd)
	checkCmd.Flags().StringVarP(&flagCheckFile, "file", "f", "", "Build file to compare against (default: Makefile or build.ninja)")
}
