package main

import (
	"github.com/nec-research/neoagdt/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
