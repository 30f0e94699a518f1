package gen

import "io"

// Generator renders a resolved project into a build file for a downstream executor
type Generator interface {
	Generate(w io.Writer, p *Project) error
	BuildFile() string
}
