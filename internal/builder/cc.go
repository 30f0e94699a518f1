package builder

import (
	"os"
	"os/exec"

	"github.com/qobs-build/genmake/internal/msg"
)

// CompilerAuto in build.cxx asks genmake to look for a compiler at generation time
const CompilerAuto = "auto"

var commonCxxCompilers = []string{"clang++", "g++", "icpx", "icpc", "c++"}

// findCompiler attempts to find a suitable C++ compiler on the system
func findCompiler() string {
	if cxx := os.Getenv("CXX"); cxx != "" {
		return cxx
	}

	for _, compiler := range commonCxxCompilers {
		path, err := exec.LookPath(compiler)
		if err == nil {
			return path
		}
	}

	return ""
}

// resolveCompiler turns the build.cxx setting into the value emitted as the CXX default.
// An empty result leaves CXX to the downstream executor.
func resolveCompiler(setting string) string {
	if setting != CompilerAuto {
		return setting
	}
	cxx := findCompiler()
	if cxx == "" {
		msg.Warn("build.cxx is %q but no C++ compiler was found, leaving CXX unset", CompilerAuto)
	}
	return cxx
}
