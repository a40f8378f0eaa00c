package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/core/parser"
	"github.com/abdul-hamid-achik/rede/packages/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Check request files without sending anything",
	Long: `Parse request files and report whether they are valid. No network
requests are made.

Examples:
  rede validate api.http
  rede validate ./requests/ -v`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: validateCommand,
}

var validateVerbose bool

func init() {
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "List the requests of each valid file")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return &usageError{err: fmt.Errorf("no .http, .rede or .toml files found")}
	}

	formatter := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(validateVerbose),
		output.WithNoColor(noColorFlag),
	)

	var first error
	for _, path := range files {
		file, err := parser.ParseFile(path)
		if err != nil {
			formatter.FormatInvalid(path, err)
			if first == nil {
				first = err
			}
			continue
		}
		formatter.FormatValid(file)
	}

	if first != nil {
		return &exitError{code: ExitCodeFor(first), err: first}
	}
	return nil
}
