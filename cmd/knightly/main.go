// Package main is the single-binary entrypoint for Knightly.
package main

import "github.com/knightly-chess/knightly/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
