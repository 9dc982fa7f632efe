package main

import (
	"os"

	"github.com/grovetools/recordsync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
