package gen

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"recipe": recipeQuote,
	"cmd":    makeEscape,
}).ParseFS(templateFS, "templates/*.tmpl"))

// MakeObjDir is where objects, the library and test binaries go; TGT is expanded by make
const MakeObjDir = "_$(TGT)_obs/"

// templateData is what the preamble and footer templates can reference
type templateData struct {
	*Project
	ObjDir    string
	BuildFile string
}

type MakeGen struct{}

func (g *MakeGen) BuildFile() string { return "Makefile" }

// continued joins prerequisites with make line continuations
func continued(items []string) string {
	return strings.Join(items, " \\\n    ")
}

// Generate writes the Makefile. Nothing is written if the project fails validation.
func (g *MakeGen) Generate(w io.Writer, p *Project) error {
	refs, err := p.refs(MakeObjDir, makeQuote)
	if err != nil {
		return err
	}

	data := templateData{Project: p, ObjDir: MakeObjDir, BuildFile: g.BuildFile()}
	lib := MakeObjDir + makeQuote(p.Library)

	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, "makefile_header.tmpl", data); err != nil {
		return fmt.Errorf("failed to render preamble: %w", err)
	}

	// test binaries
	var testBins []string
	for _, ref := range refs {
		if ref.bin == "" {
			continue
		}
		testBins = append(testBins, ref.bin)
		writeln(&sb, ref.bin, ": ", lib, " ", ref.obj)
		writeln(&sb, "\t$(CXX) -o ", ref.bin, " ", ref.obj, " ", lib, " $(LDFLAGS)")
		writeln(&sb)
	}

	// objects
	objs := make([]string, len(refs))
	for i, u := range p.Units {
		obj := refs[i].obj
		objs[i] = obj

		prereqs := make([]string, 0, len(u.Deps)+1)
		prereqs = append(prereqs, makeQuote(u.Source))
		for _, dep := range u.Deps {
			prereqs = append(prereqs, makeQuote(dep))
		}
		writeln(&sb, obj, ": ", continued(prereqs))
		writeln(&sb, "\t$(CXX) $(CXXFLAGS) -c -o ", obj, " ", recipeQuote(u.Source))
		writeln(&sb)
	}

	// library
	write(&sb, lib, ":")
	if len(objs) > 0 {
		write(&sb, " ", continued(objs))
	}
	writeln(&sb)
	write(&sb, "\trm -f ", lib, " && $(AR) -rcs ", lib)
	if len(objs) > 0 {
		write(&sb, " ", continued(objs))
	}
	writeln(&sb)
	writeln(&sb)

	// entry point
	mainPrereqs := []string{makeQuote(p.Main)}
	for _, dep := range p.MainDeps {
		mainPrereqs = append(mainPrereqs, makeQuote(dep))
	}
	mainPrereqs = append(mainPrereqs, lib)
	writeln(&sb, "notests: ", continued(mainPrereqs))
	writeln(&sb, "\t$(CXX) $(CXXFLAGS) -o ", recipeQuote(p.Binary), " ", recipeQuote(p.Main), " ", lib, " $(LDFLAGS)")
	writeln(&sb)

	write(&sb, "tests:")
	if len(testBins) > 0 {
		write(&sb, " ", continued(testBins))
	}
	writeln(&sb)
	writeln(&sb)

	writeln(&sb, "all: tests notests tools")

	if err := templates.ExecuteTemplate(&sb, "makefile_footer.tmpl", data); err != nil {
		return fmt.Errorf("failed to render footer: %w", err)
	}

	_, err = io.WriteString(w, sb.String())
	return err
}
