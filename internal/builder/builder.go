package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/qobs-build/genmake/internal/builder/gen"
	"github.com/qobs-build/genmake/internal/msg"
	"golang.org/x/sync/errgroup"
)

const (
	GeneratorMake  = "make"
	GeneratorNinja = "ninja"
)

var (
	errUnknownGenerator = errors.New("unknown generator")
)

// Options are the command-line knobs of a generation run
type Options struct {
	Generator string
	// Tgt and Env override build.target and build.env
	Tgt string
	Env string
	// Quoted also tracks quote-style includes, on top of includes.quoted
	Quoted bool
	Jobs   int
	// Progress draws a progress bar on the diagnostic stream while scanning
	Progress bool
	// Regenerate is the command line written into the self-regeneration rule
	Regenerate string
}

type Builder struct {
	cfg  *Config
	fsys fs.FS
	gen  gen.Generator
	opts Options
}

// NewBuilderInDirectory creates a builder for the project rooted at path
func NewBuilderInDirectory(path string, opts Options) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return NewBuilder(os.DirFS(path), filepath.Base(path), opts)
}

// NewBuilder creates a builder over any file system. name is the project name used
// when genmake.toml does not set one.
func NewBuilder(fsys fs.FS, name string, opts Options) (*Builder, error) {
	g, err := createGenerator(opts.Generator)
	if err != nil {
		return nil, err
	}

	env := NewConfigEnv(opts.Tgt, opts.Env)
	cfg, err := LoadConfig(fsys, name, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ConfigFilename, err)
	}
	if opts.Tgt != "" {
		cfg.Build.Target = opts.Tgt
	}
	if opts.Env != "" {
		cfg.Build.Env = opts.Env
	}
	if opts.Quoted {
		cfg.Includes.Quoted = true
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}

	return &Builder{cfg: cfg, fsys: fsys, gen: g, opts: opts}, nil
}

func createGenerator(generator string) (gen.Generator, error) {
	switch generator {
	case GeneratorMake, "":
		return &gen.MakeGen{}, nil
	case GeneratorNinja:
		return &gen.NinjaGen{}, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownGenerator, generator)
	}
}

func (b *Builder) Config() *Config { return b.cfg }

// BuildFile is the conventional name of the generated file, e.g. Makefile
func (b *Builder) BuildFile() string { return b.gen.BuildFile() }

// Targets lists the configured build targets
func (b *Builder) Targets() []string {
	return ListTargets(b.fsys, b.cfg.Layout.TargetsDir)
}

// Project discovers the sources, resolves their dependencies and assembles the generator input
func (b *Builder) Project(ctx context.Context) (*gen.Project, error) {
	sources, err := Discover(b.fsys, b.cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources: %w", err)
	}
	// project.main is linked by notests even when it doesn't look like an entry point
	entry := cleanRel(b.cfg.Project.Main)
	sources = slices.DeleteFunc(sources, func(src string) bool { return src == entry })

	if err := gen.CheckCollisions(sources); err != nil {
		return nil, err
	}

	resolver := NewResolver(b.fsys, b.cfg.Layout.IncludeDirs, b.cfg.Includes.Quoted)
	units, err := b.scan(ctx, resolver, sources)
	if err != nil {
		return nil, err
	}

	var mainDeps []string
	if _, err := fs.Stat(b.fsys, b.cfg.Project.Main); err == nil {
		deps, err := resolver.Resolve(b.cfg.Project.Main)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dependencies of %s: %w", b.cfg.Project.Main, err)
		}
		mainDeps = deps.Sorted()
	} else {
		msg.Warn("entry point %s not found, notests will not build", b.cfg.Project.Main)
	}

	var configFile string
	if _, err := fs.Stat(b.fsys, ConfigFilename); err == nil {
		configFile = ConfigFilename
	}

	return &gen.Project{
		Name:       b.cfg.Project.Name,
		Library:    b.cfg.Project.Library,
		Binary:     b.cfg.Project.Binary,
		Main:       b.cfg.Project.Main,
		MainDeps:   mainDeps,
		Units:      units,
		Targets:    b.Targets(),
		TargetsDir: b.cfg.Layout.TargetsDir,
		ToolsDir:   b.cfg.Layout.ToolsDir,
		TestsDir:   b.cfg.Layout.TestsDir,
		Target:     b.cfg.Build.Target,
		Env:        b.cfg.Build.Env,
		Cxx:        resolveCompiler(b.cfg.Build.Cxx),
		Cxxflags:   b.cfg.Build.Cxxflags,
		Ldflags:    b.cfg.Build.Ldflags,
		Regenerate: b.opts.Regenerate,
		ConfigFile: configFile,
	}, nil
}

// scan resolves every source in parallel. Each result goes to the slot of its
// source, so the output order is the (sorted) input order.
func (b *Builder) scan(ctx context.Context, resolver *Resolver, sources []string) ([]gen.Unit, error) {
	units := make([]gen.Unit, len(sources))

	var pb *msg.ProgressBar
	if b.opts.Progress && len(sources) > 0 {
		pb = msg.NewProgressBar(int64(len(sources)), 0, "scanning", msg.Output())
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.opts.Jobs)

	for i, src := range sources {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			deps, err := resolver.Resolve(src)
			if err != nil {
				return fmt.Errorf("failed to resolve dependencies of %s: %w", src, err)
			}
			units[i] = gen.Unit{
				Source: src,
				Deps:   deps.Sorted(),
				Test:   IsTestSource(src, b.cfg.Layout.TestsDir),
			}
			if pb != nil {
				pb.Step()
			}
			return nil
		})
	}

	err := eg.Wait()
	if pb != nil {
		pb.Finish()
	}
	if err != nil {
		return nil, err
	}
	return units, nil
}

// Generate renders the whole build file and writes it to w in one go.
// On error nothing is written.
func (b *Builder) Generate(ctx context.Context, w io.Writer) error {
	p, err := b.Project(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := b.gen.Generate(&buf, p); err != nil {
		return fmt.Errorf("failed to generate %s: %w", b.gen.BuildFile(), err)
	}

	_, err = w.Write(buf.Bytes())
	return err
}
