package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diffsec/parsentry/internal/cliui"
)

// ui is the shared colorized status stream every command writes progress
// and error lines to.
var ui = cliui.NewStream()

var (
	// Global flags
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "parsentry",
	Short: "LLM-assisted static security scanner combining grammar pattern matching with PAR triage",
	Long: `parsentry scans source trees for security vulnerabilities by pairing
tree-sitter-style grammar pattern matching with LLM-driven Principal/Action/
Resource triage, then reports findings as Markdown and SARIF 2.1.0.

Use 'parsentry scan <path>' to analyze a local tree, 'parsentry graph' to
analyze a multi-variant set of repositories discovered on GitHub, 'parsentry
generate' to derive new patterns for a language from an example tree, and
'parsentry cache' to inspect or clear the response cache.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// outputJSON outputs data as JSON
func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// output outputs data in the appropriate format
func output(data interface{}, textFormatter func(interface{}) string) {
	if jsonOutput {
		if err := outputJSON(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(textFormatter(data))
	}
}

// exitError prints an error message and exits
func exitError(format string, args ...interface{}) {
	ui.Error(format, args...)
	os.Exit(1)
}

// exitErrorJSON outputs an error in JSON format if --json flag is set
func exitErrorJSON(err error) {
	if jsonOutput {
		outputJSON(map[string]string{"error": err.Error()})
	} else {
		ui.Error("%v", err)
	}
	os.Exit(1)
}
