package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/shanehull/petcatalog/internal/cli"
)

const version = "0.1.0"

func main() {
	root := cli.NewRootCmd()

	// Interrupt cancels the command context; the pipeline finishes the
	// records it has started and stops.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
