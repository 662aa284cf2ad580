package main

import (
	"github.com/eernst/sfskit/cmd"
)

func main() {
	cmd.Execute()
}
