// genmake targets [path]
package cmd

import (
	"fmt"

	"github.com/qobs-build/genmake/internal/msg"
	"github.com/spf13/cobra"
)

func doTargets(cmd *cobra.Command, args []string) {
	b := newBuilder(targetPath(args))

	targets := b.Targets()
	for _, t := range targets {
		fmt.Println(t)
	}
	if len(targets) == 0 {
		msg.Warn("no targets found in %s", b.Config().Layout.TargetsDir)
	}
}

var targetsCmd = &cobra.Command{
	Use:   "targets [target path]",
	Short: "List the build targets (TGT values)",
	Args:  cobra.MaximumNArgs(1),
	Run:   doTargets,
}

func init() {
	// genmake targets subcommand
	rootCmd.AddCommand(targetsCmd)
}
