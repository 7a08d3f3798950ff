// Command parsentry is the CLI entry point: see cmd.Execute for the
// cobra command tree (scan, graph, generate, cache, finding).
package main

import "github.com/diffsec/parsentry/cmd"

func main() {
	cmd.Execute()
}
