package main

import "github.com/qobs-build/genmake/cmd"

func main() {
	cmd.Execute()
}
