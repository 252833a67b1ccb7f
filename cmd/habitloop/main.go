// Package main is the single-binary entrypoint for habitloop.
package main

import "github.com/habitloop/habitloop/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
