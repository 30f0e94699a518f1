// genmake [path], genmake generate [path]
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/qobs-build/genmake/internal/builder"
	"github.com/qobs-build/genmake/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagOutput    string
	flagTgt       string
	flagEnv       string
	flagJobs      int
	flagQuoted    bool
	flagVerbose   bool
	flagProgress  bool
	flagGenerator EnumValue = NewEnumValue(builder.GeneratorMake, map[string]string{
		builder.GeneratorMake:  "Generates a Makefile (default)",
		builder.GeneratorNinja: "Generates a build.ninja file",
	})
)

func targetPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// regenerateCommand is the command line the generated file uses to rebuild itself
func regenerateCommand() string {
	cmdline := getProgramName() + " generate"
	if flagGenerator.Value() != builder.GeneratorMake {
		cmdline += " -g " + flagGenerator.Value()
		// make picks TGT/ENV at build time, ninja bakes them in
		if flagTgt != "" {
			cmdline += " --tgt " + flagTgt
		}
		if flagEnv != "" {
			cmdline += " --env " + flagEnv
		}
	}
	if flagQuoted {
		cmdline += " --quoted"
	}
	return cmdline
}

func newBuilder(target string) *builder.Builder {
	msg.SetVerbose(flagVerbose)
	b, err := builder.NewBuilderInDirectory(target, builder.Options{
		Generator:  flagGenerator.Value(),
		Tgt:        flagTgt,
		Env:        flagEnv,
		Quoted:     flagQuoted,
		Jobs:       flagJobs,
		Progress:   flagProgress && !flagVerbose,
		Regenerate: regenerateCommand(),
	})
	if err != nil {
		msg.Fatal("%v", err)
	}
	return b
}

func doGenerate(cmd *cobra.Command, args []string) {
	b := newBuilder(targetPath(args))

	if flagOutput == "" || flagOutput == "-" {
		if err := b.Generate(context.Background(), os.Stdout); err != nil {
			msg.Fatal("%v", err)
		}
		return
	}

	var buf bytes.Buffer
	if err := b.Generate(context.Background(), &buf); err != nil {
		msg.Fatal("%v", err)
	}
	if err := os.WriteFile(flagOutput, buf.Bytes(), 0o644); err != nil {
		msg.Fatal("write %s: %v", flagOutput, err)
	}
	msg.Info("wrote %s", flagOutput)
}

var rootCmd = &cobra.Command{
	Use:   "genmake [target path]",
	Short: "Generate a dependency-tracking Makefile for a C++ tree",
	Long: `Generate a dependency-tracking Makefile for a C++ tree.

Every .cpp file is compiled into an object that depends on all the headers it
includes, transitively. Objects are archived into a static library, tests are
linked against it, and TGT/ENV select the configuration fragment to include.
The build file is written to stdout; diagnostics go to stderr.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doGenerate,
}

var generateCmd = &cobra.Command{
	Use:   "generate [target path]",
	Short: "Generate the build file",
	Long:  `Generate the build file. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGenerate,
}

func init() {
	addGenerateFlags(rootCmd)
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the build file here instead of stdout")

	// genmake generate subcommand
	rootCmd.AddCommand(generateCmd)
	addGenerateFlags(generateCmd)
	generateCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the build file here instead of stdout")
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to use, one of "+flagGenerator.HelpString())
	cmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())
	cmd.Flags().StringVar(&flagTgt, "tgt", "", "Default build target (TGT), overrides build.target")
	cmd.Flags().StringVar(&flagEnv, "env", "", "Default build environment (ENV), overrides build.env")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", runtime.NumCPU(), "Number of sources to scan in parallel")
	cmd.Flags().BoolVar(&flagQuoted, "quoted", false, `Also track #include "..." (off by default)`)
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Trace every source and header")
	cmd.Flags().BoolVar(&flagProgress, "progress", stderrIsTerminal(), "Show scanning progress on stderr")
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
