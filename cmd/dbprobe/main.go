package main

import (
	"os"

	"github.com/thisdougb/dbprobe/cmd/dbprobe/cmd"
)

// Config is handled by cmd/root.go
func main() {
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
