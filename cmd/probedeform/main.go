package main

import (
	"os"

	"github.com/phanxgames/probedeform/cmd/probedeform/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(cmd.Execute(version + " (" + commit + ")"))
}
