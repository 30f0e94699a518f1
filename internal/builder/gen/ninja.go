package gen

import (
	"io"
	"strings"
)

// NinjaGen renders build.ninja. Ninja has no environment conditionals, so TGT and ENV
// are fixed at generation time and the targets/TGT/ENV.mk fragments are not read.
type NinjaGen struct{}

func (g *NinjaGen) BuildFile() string { return "build.ninja" }

// NinjaObjDir is the object directory for a fixed target
func NinjaObjDir(target string) string { return "_" + target + "_obs/" }

func (g *NinjaGen) Generate(w io.Writer, p *Project) error {
	objDir := ninjaQuote(NinjaObjDir(p.Target))
	refs, err := p.refs(objDir, ninjaQuote)
	if err != nil {
		return err
	}
	lib := objDir + ninjaQuote(p.Library)

	cxx := p.Cxx
	if cxx == "" {
		cxx = "c++"
	}

	var sb strings.Builder
	writeln(&sb, "# generated by `", p.Regenerate, "`, do not edit")
	writeln(&sb, "ninja_required_version = 1.3")
	writeln(&sb, "tgt = ", p.Target)
	writeln(&sb, "env = ", p.Env)
	writeln(&sb, "cxx = ", cxx)
	write(&sb, "cxxflags =")
	for _, f := range p.Cxxflags {
		write(&sb, " ", f)
	}
	writeln(&sb, " -DTARGET_$tgt -DENVIRONMENT_$env")
	write(&sb, "ldflags =")
	for _, f := range p.Ldflags {
		write(&sb, " ", f)
	}
	writeln(&sb)
	writeln(&sb)

	write(&sb,
		`rule cxx
  command = $cxx $cxxflags -c $in -o $out
  description = CXX $out
rule link
  command = $cxx -o $out $in $ldflags
  description = LINK $out
rule cxxlink
  command = $cxx $cxxflags -o $out $in $ldflags
  description = LINK $out
rule ar
  command = rm -f $out && ar rcs $out $in
  description = AR $out
rule regen
  command = `, ninjaEscape(p.Regenerate), ` > $out
  description = GENMAKE $out
  generator = 1
`)
	writeln(&sb)

	var testBins []string
	for _, ref := range refs {
		if ref.bin == "" {
			continue
		}
		testBins = append(testBins, ref.bin)
		writeln(&sb, "build ", ref.bin, ": link ", ref.obj, " ", lib)
	}
	writeln(&sb)

	for i, u := range p.Units {
		write(&sb, "build ", refs[i].obj, ": cxx ", ninjaQuote(u.Source))
		if len(u.Deps) > 0 {
			write(&sb, " |")
			for _, dep := range u.Deps {
				write(&sb, " ", ninjaQuote(dep))
			}
		}
		writeln(&sb)
	}
	writeln(&sb)

	write(&sb, "build ", lib, ": ar")
	for _, ref := range refs {
		write(&sb, " ", ref.obj)
	}
	writeln(&sb)

	write(&sb, "build ", ninjaQuote(p.Binary), ": cxxlink ", ninjaQuote(p.Main), " ", lib)
	if len(p.MainDeps) > 0 {
		write(&sb, " |")
		for _, dep := range p.MainDeps {
			write(&sb, " ", ninjaQuote(dep))
		}
	}
	writeln(&sb)
	writeln(&sb)

	writeln(&sb, "build notests: phony ", ninjaQuote(p.Binary))
	write(&sb, "build tests: phony")
	for _, bin := range testBins {
		write(&sb, " ", bin)
	}
	writeln(&sb)
	writeln(&sb, "build all: phony tests notests")
	write(&sb, "build ", g.BuildFile(), ": regen")
	if p.ConfigFile != "" {
		write(&sb, " | ", ninjaQuote(p.ConfigFile))
	}
	writeln(&sb)
	writeln(&sb, "build genmake: phony ", g.BuildFile())
	writeln(&sb, "default all")

	_, err = io.WriteString(w, sb.String())
	return err
}
