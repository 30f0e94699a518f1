package gen

import "strings"

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}
func writeln(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
	sb.WriteByte('\n')
}

var makePathEscaper = strings.NewReplacer("$", "$$", " ", "\\ ", "#", "\\#")

// makeQuote escapes a literal path for use in a make rule. Paths that already
// reference make variables (the object directory) are built from quoted parts.
func makeQuote(s string) string { return makePathEscaper.Replace(s) }

// makeEscape keeps make from expanding $ in a command line copied into a recipe
func makeEscape(s string) string { return strings.ReplaceAll(s, "$", "$$") }

// recipeQuote single-quotes a path for the shell running a recipe line
func recipeQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t$#'\"\\&;|<>()*?[]{}~`!") {
		return s
	}
	return "'" + makeEscape(strings.ReplaceAll(s, "'", `'\''`)) + "'"
}

var ninjaPathEscaper = strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ")

func ninjaQuote(s string) string { return ninjaPathEscaper.Replace(s) }

// ninjaEscape escapes a variable value, where spaces and colons are literal
func ninjaEscape(s string) string { return strings.ReplaceAll(s, "$", "$$") }
