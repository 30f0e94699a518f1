package gen

import (
	"fmt"
)

// Unit is one translation unit of the library, or a test
type Unit struct {
	Source string
	Deps   []string // transitively included project headers, sorted
	Test   bool
}

// Project is everything a generator needs to render a build file
type Project struct {
	Name    string
	Library string // archive file name, e.g. libmercury.a
	Binary  string // entry-point executable
	Main    string // entry-point source
	// headers included by Main; nil when Main does not exist
	MainDeps []string
	Units    []Unit

	// Targets are the subdirectories of TargetsDir, listed in the preamble
	Targets    []string
	TargetsDir string
	ToolsDir   string
	TestsDir   string
	// Target and Env are the defaults for TGT and ENV
	Target string
	Env    string

	Cxx      string
	Cxxflags []string
	Ldflags  []string

	// Regenerate is the command line that rebuilds the build file
	Regenerate string
	// ConfigFile is set when the project has a genmake.toml
	ConfigFile string
}

// unitRefs are the rendered artifact names of one unit
type unitRefs struct {
	obj string
	bin string // empty unless the unit is a test
}

// refs names the artifacts of every unit under objDir. It fails if any two rule targets
// would share a name, which guarantees one compile rule per object and no duplicates.
func (p *Project) refs(objDir string, quote func(string) string) ([]unitRefs, error) {
	sources := make([]string, len(p.Units))
	for i, u := range p.Units {
		sources[i] = u.Source
	}
	if err := CheckCollisions(sources); err != nil {
		return nil, err
	}

	targets := make(map[string]string)
	define := func(target, owner string) error {
		if prev, ok := targets[target]; ok {
			return fmt.Errorf("target %s is defined by both %s and %s", target, prev, owner)
		}
		targets[target] = owner
		return nil
	}

	out := make([]unitRefs, len(p.Units))
	for i, u := range p.Units {
		out[i].obj = objectRef(objDir, u.Source, quote)
		if err := define(out[i].obj, u.Source); err != nil {
			return nil, err
		}
	}
	for i, u := range p.Units {
		if !u.Test {
			continue
		}
		out[i].bin = TestBinaryRef(out[i].obj)
		if err := define(out[i].bin, u.Source); err != nil {
			return nil, err
		}
	}
	if err := define(objDir+quote(p.Library), "the library"); err != nil {
		return nil, err
	}
	return out, nil
}
