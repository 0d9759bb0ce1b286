package main

import (
	"os"

	"github.com/velozfibra/portal/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand(), os.Stderr))
}
