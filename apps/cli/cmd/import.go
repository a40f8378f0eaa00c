package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/import/curl"
)

var (
	importOutput   string
	importComments bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Convert requests from other tools into request files",
}

var importCurlCmd = &cobra.Command{
	Use:   "curl [file | 'curl ...']",
	Short: "Convert curl commands to a .http file",
	Long: `Convert curl commands to the .http request format.

The argument is either a file with one curl command per line (lines ending
in a backslash continue) or a single quoted curl command. With no argument
commands are read from stdin.

Examples:
  rede import curl "curl -X POST https://api.example.com/users -d '{\"name\":\"Ann\"}'"
  rede import curl commands.sh -o api.http
  pbpaste | rede import curl`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: importCurlCommand,
}

func init() {
	importCurlCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Write to this file instead of stdout")
	importCurlCmd.Flags().BoolVar(&importComments, "comments", false, "Keep each original command as a comment")

	importCmd.AddCommand(importCurlCmd)
	rootCmd.AddCommand(importCmd)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	converter := curl.NewConverter(curl.WithComments(importComments))

	var (
		result string
		err    error
	)
	switch {
	case len(args) == 0:
		result, err = converter.ConvertReader(cmd.InOrStdin())
	case strings.HasPrefix(strings.TrimSpace(args[0]), "curl "):
		result, err = converter.ConvertCommand(args[0])
	default:
		var f *os.File
		f, err = os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		result, err = converter.ConvertReader(f)
	}
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if importOutput != "" {
		f, err := os.Create(importOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", importOutput, err)
		}
		defer f.Close()
		out = f
	}

	_, err = io.WriteString(out, result)
	return err
}
