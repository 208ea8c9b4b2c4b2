// Command aninfo browses anime metadata from the terminal.
//
// Usage:
//
//	aninfo home
//	aninfo search frieren
//	aninfo anime 52991
//
// See --help for all available commands.
package main

import "github.com/example/aninfo/services/aninfo/internal/cli"

func main() {
	cli.Execute()
}
