package main

import (
	"os"

	"e2e_harness/presentation/terminal"
)

func main() {
	os.Exit(terminal.Execute())
}
